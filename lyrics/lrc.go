package lyrics

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedTimestamp is returned when an LRC tag does not match the
// [MM:SS.CC] pattern.
var ErrMalformedTimestamp = errors.New("malformed lrc timestamp")

// Line is a single synced lyric line.
type Line struct {
	OffsetMs int    `json:"offsetMs"`
	Text     string `json:"text"`
}

var (
	// Fractional part is centiseconds in canonical LRC, but some sources
	// emit milliseconds. 1-3 digits are accepted.
	timestampPattern = regexp.MustCompile(`^\[(\d{1,3}):(\d{1,2})\.(\d{1,3})\]$`)
	linePattern      = regexp.MustCompile(`^(\[[^\]]*\])(.*)$`)
)

// DecodeTimestamp converts an LRC tag like "[01:23.45]" to milliseconds.
func DecodeTimestamp(tag string) (int, error) {
	m := timestampPattern.FindStringSubmatch(tag)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, tag)
	}

	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, tag)
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, tag)
	}
	frac, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, tag)
	}

	var fracMs int
	switch len(m[3]) {
	case 1:
		fracMs = frac * 100
	case 2:
		fracMs = frac * 10
	default:
		fracMs = frac
	}

	return (minutes*60+seconds)*1000 + fracMs, nil
}

// EncodeTimestamp is the inverse of DecodeTimestamp, emitting the canonical
// zero-padded centisecond form. Sub-centisecond precision is truncated.
func EncodeTimestamp(offsetMs int) string {
	if offsetMs < 0 {
		offsetMs = 0
	}
	minutes := offsetMs / 60000
	seconds := (offsetMs % 60000) / 1000
	centis := (offsetMs % 1000) / 10
	return fmt.Sprintf("[%02d:%02d.%02d]", minutes, seconds, centis)
}

// ParseSynced converts raw LRC text into lines ordered by offset. Source
// text is not guaranteed sorted. Lines without a parseable tag are skipped
// and counted; lines whose text is empty after trimming are dropped.
func ParseSynced(raw string) ([]Line, int) {
	var lines []Line
	skipped := 0

	for _, rawLine := range strings.Split(raw, "\n") {
		rawLine = strings.TrimSpace(rawLine)
		if rawLine == "" {
			continue
		}
		if !strings.HasPrefix(rawLine, "[") {
			continue
		}

		m := linePattern.FindStringSubmatch(rawLine)
		if m == nil {
			skipped++
			continue
		}

		offset, err := DecodeTimestamp(m[1])
		if err != nil {
			// Metadata tags like [ar:Artist] land here.
			skipped++
			continue
		}

		text := strings.TrimSpace(m[2])
		if text == "" {
			continue
		}

		lines = append(lines, Line{OffsetMs: offset, Text: text})
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].OffsetMs < lines[j].OffsetMs
	})
	return lines, skipped
}
