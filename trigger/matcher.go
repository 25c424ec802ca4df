package trigger

import (
	"regexp"
	"sort"
	"strings"

	"ocdify-go/lyrics"
	"ocdify-go/models"
)

// Match is one (line, word) trigger occurrence. A word appearing several
// times on the same line yields a single match for that line.
type Match struct {
	Word       string `json:"word"`
	CategoryID int64  `json:"categoryId"`
	OffsetMs   int    `json:"offsetMs"`
	LineIndex  int    `json:"lineIndex"`
	LineText   string `json:"lineText"`
}

type compiledWord struct {
	word    string
	pattern *regexp.Regexp
}

// compileCategory builds word-boundary patterns for a category's word list.
// Words are expected lower-cased already; the boundary requirement means
// "die" never matches inside "died".
func compileCategory(cat models.TriggerCategory) []compiledWord {
	compiled := make([]compiledWord, 0, len(cat.Words))
	for _, word := range cat.Words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(word) + `\b`)
		if err != nil {
			continue
		}
		compiled = append(compiled, compiledWord{word: word, pattern: pattern})
	}
	return compiled
}

func activeSorted(categories []models.TriggerCategory) []models.TriggerCategory {
	active := make([]models.TriggerCategory, 0, len(categories))
	for _, cat := range categories {
		if cat.Active {
			active = append(active, cat)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active
}

// FindMatches scans synced lyric lines against every active category.
// Output is ordered by line offset, then category id, then first word
// occurrence within the line.
func FindMatches(lines []lyrics.Line, categories []models.TriggerCategory) []Match {
	cats := activeSorted(categories)
	if len(cats) == 0 || len(lines) == 0 {
		return nil
	}

	compiled := make([][]compiledWord, len(cats))
	for i, cat := range cats {
		compiled[i] = compileCategory(cat)
	}

	var matches []Match
	for lineIdx, line := range lines {
		lowered := strings.ToLower(line.Text)

		for catIdx, cat := range cats {
			type hit struct {
				word string
				pos  int
			}
			var hits []hit
			for _, cw := range compiled[catIdx] {
				loc := cw.pattern.FindStringIndex(lowered)
				if loc == nil {
					continue
				}
				hits = append(hits, hit{word: cw.word, pos: loc[0]})
			}
			sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

			for _, h := range hits {
				matches = append(matches, Match{
					Word:       h.word,
					CategoryID: cat.ID,
					OffsetMs:   line.OffsetMs,
					LineIndex:  lineIdx,
					LineText:   line.Text,
				})
			}
		}
	}
	return matches
}

// FindTextMatches scans plain (untimed) text line by line. LineIndex is the
// 1-based line number; offsets are zero since there is no timing data.
func FindTextMatches(text string, categories []models.TriggerCategory) []Match {
	cats := activeSorted(categories)
	if len(cats) == 0 || strings.TrimSpace(text) == "" {
		return nil
	}

	compiled := make([][]compiledWord, len(cats))
	for i, cat := range cats {
		compiled[i] = compileCategory(cat)
	}

	var matches []Match
	for lineNo, rawLine := range strings.Split(text, "\n") {
		lowered := strings.ToLower(strings.TrimSpace(rawLine))
		if lowered == "" {
			continue
		}

		for catIdx, cat := range cats {
			type hit struct {
				word string
				pos  int
			}
			var hits []hit
			for _, cw := range compiled[catIdx] {
				loc := cw.pattern.FindStringIndex(lowered)
				if loc == nil {
					continue
				}
				hits = append(hits, hit{word: cw.word, pos: loc[0]})
			}
			sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

			for _, h := range hits {
				matches = append(matches, Match{
					Word:       h.word,
					CategoryID: cat.ID,
					LineIndex:  lineNo + 1,
					LineText:   strings.TrimSpace(rawLine),
				})
			}
		}
	}
	return matches
}

// HasMatch reports whether any active category word occurs in the text.
// It short-circuits on the first hit; used for plain lyrics where only a
// contamination verdict is needed.
func HasMatch(text string, categories []models.TriggerCategory) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lowered := strings.ToLower(text)

	for _, cat := range categories {
		if !cat.Active {
			continue
		}
		for _, cw := range compileCategory(cat) {
			if cw.pattern.MatchString(lowered) {
				return true
			}
		}
	}
	return false
}
