package trigger

import (
	"sort"

	"ocdify-go/lyrics"
	"ocdify-go/models"
)

// DefaultLinePadMs is used as a raw interval's length when a matched line
// has no successor to borrow an end offset from.
const DefaultLinePadMs = 5000

// DefaultMergeThresholdMs merges intervals of the same category whose gap
// is below this value.
const DefaultMergeThresholdMs = 5000

type interval struct {
	start int
	end   int
	words map[string]struct{}
}

// BuildWindows turns trigger matches into merged skip windows.
//
// Each match covers [line offset, next line offset); the last line gets
// linePadMs instead. Intervals are merged per category when the gap to the
// next interval is under mergeThresholdMs, and the merged window keeps the
// union of the words that produced it. Output is sorted by start.
func BuildWindows(matches []Match, lines []lyrics.Line, mergeThresholdMs, linePadMs int) []models.TriggerWindow {
	if len(matches) == 0 {
		return nil
	}
	if mergeThresholdMs <= 0 {
		mergeThresholdMs = DefaultMergeThresholdMs
	}
	if linePadMs <= 0 {
		linePadMs = DefaultLinePadMs
	}

	byCategory := make(map[int64][]interval)
	for _, m := range matches {
		start := m.OffsetMs
		end := start + linePadMs
		if m.LineIndex+1 < len(lines) {
			end = lines[m.LineIndex+1].OffsetMs
		}
		byCategory[m.CategoryID] = append(byCategory[m.CategoryID], interval{
			start: start,
			end:   end,
			words: map[string]struct{}{m.Word: {}},
		})
	}

	var windows []models.TriggerWindow
	for categoryID, intervals := range byCategory {
		sort.Slice(intervals, func(i, j int) bool { return intervals[i].start < intervals[j].start })

		current := intervals[0]
		for _, next := range intervals[1:] {
			if next.start-current.end < mergeThresholdMs {
				if next.end > current.end {
					current.end = next.end
				}
				for w := range next.words {
					current.words[w] = struct{}{}
				}
				continue
			}
			windows = append(windows, closeWindow(categoryID, current))
			current = next
		}
		windows = append(windows, closeWindow(categoryID, current))
	}

	sort.Slice(windows, func(i, j int) bool {
		if windows[i].StartMs != windows[j].StartMs {
			return windows[i].StartMs < windows[j].StartMs
		}
		return windows[i].CategoryID < windows[j].CategoryID
	})
	return windows
}

func closeWindow(categoryID int64, iv interval) models.TriggerWindow {
	words := make([]string, 0, len(iv.words))
	for w := range iv.words {
		words = append(words, w)
	}
	sort.Strings(words)
	return models.TriggerWindow{
		CategoryID: categoryID,
		Words:      words,
		StartMs:    iv.start,
		EndMs:      iv.end,
	}
}
