package trigger

import (
	"reflect"
	"testing"

	"ocdify-go/lyrics"
	"ocdify-go/models"
)

func TestBuildWindows_MergeThreshold(t *testing.T) {
	// Two raw intervals: [1000,2000] and [2500,3000].
	lines := []lyrics.Line{
		{OffsetMs: 1000, Text: "kill"},
		{OffsetMs: 2000, Text: "safe"},
		{OffsetMs: 2500, Text: "kill"},
		{OffsetMs: 3000, Text: "safe"},
	}
	matches := []Match{
		{Word: "kill", CategoryID: 1, OffsetMs: 1000, LineIndex: 0},
		{Word: "kill", CategoryID: 1, OffsetMs: 2500, LineIndex: 2},
	}

	t.Run("Gap below threshold merges", func(t *testing.T) {
		windows := BuildWindows(matches, lines, 1000, 5000)
		if len(windows) != 1 {
			t.Fatalf("Expected 1 merged window, got %d", len(windows))
		}
		if windows[0].StartMs != 1000 || windows[0].EndMs != 3000 {
			t.Errorf("Expected [1000,3000], got [%d,%d]", windows[0].StartMs, windows[0].EndMs)
		}
	})

	t.Run("Gap above threshold stays separate", func(t *testing.T) {
		windows := BuildWindows(matches, lines, 400, 5000)
		if len(windows) != 2 {
			t.Fatalf("Expected 2 windows, got %d", len(windows))
		}
		if windows[0].EndMs != 2000 || windows[1].StartMs != 2500 {
			t.Errorf("Unexpected windows: %+v", windows)
		}
	})
}

func TestBuildWindows_WordAttributionAcrossMerge(t *testing.T) {
	lines := []lyrics.Line{
		{OffsetMs: 1000, Text: "death here"},
		{OffsetMs: 2000, Text: "kill there"},
		{OffsetMs: 3000, Text: "safe"},
	}
	matches := []Match{
		{Word: "death", CategoryID: 1, OffsetMs: 1000, LineIndex: 0},
		{Word: "kill", CategoryID: 1, OffsetMs: 2000, LineIndex: 1},
	}

	windows := BuildWindows(matches, lines, 5000, 5000)
	if len(windows) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(windows))
	}
	if !reflect.DeepEqual(windows[0].Words, []string{"death", "kill"}) {
		t.Errorf("Expected word set [death kill], got %v", windows[0].Words)
	}
}

func TestBuildWindows_CategoriesNeverMerge(t *testing.T) {
	lines := []lyrics.Line{
		{OffsetMs: 1000, Text: "death here"},
		{OffsetMs: 2000, Text: "spiders there"},
		{OffsetMs: 3000, Text: "safe"},
	}
	matches := []Match{
		{Word: "death", CategoryID: 1, OffsetMs: 1000, LineIndex: 0},
		{Word: "spiders", CategoryID: 2, OffsetMs: 2000, LineIndex: 1},
	}

	windows := BuildWindows(matches, lines, 5000, 5000)
	if len(windows) != 2 {
		t.Fatalf("Expected 2 windows across categories, got %d", len(windows))
	}
}

func TestBuildWindows_LastLineUsesPad(t *testing.T) {
	lines := []lyrics.Line{{OffsetMs: 9000, Text: "kill at the end"}}
	matches := []Match{{Word: "kill", CategoryID: 1, OffsetMs: 9000, LineIndex: 0}}

	windows := BuildWindows(matches, lines, 5000, 5000)
	if len(windows) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(windows))
	}
	if windows[0].EndMs != 14000 {
		t.Errorf("Expected end 14000 (start+pad), got %d", windows[0].EndMs)
	}
}

func TestBuildWindows_Empty(t *testing.T) {
	if got := BuildWindows(nil, nil, 5000, 5000); got != nil {
		t.Errorf("Expected nil for empty input, got %+v", got)
	}
}

func TestEndToEnd_ParseMatchBuild(t *testing.T) {
	raw := "[00:10.00]I will die\n[00:15.00]and live again"

	lines, skipped := lyrics.ParseSynced(raw)
	if skipped != 0 || len(lines) != 2 {
		t.Fatalf("Unexpected parse result: %d lines, %d skipped", len(lines), skipped)
	}

	cats := []models.TriggerCategory{{ID: 7, Name: "x", Active: true, Words: []string{"die"}}}
	matches := FindMatches(lines, cats)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
	if matches[0].OffsetMs != 10000 {
		t.Errorf("Expected match at 10000ms, got %d", matches[0].OffsetMs)
	}

	windows := BuildWindows(matches, lines, 5000, 5000)
	if len(windows) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(windows))
	}
	w := windows[0]
	if w.StartMs != 10000 || w.EndMs != 15000 || w.CategoryID != 7 {
		t.Errorf("Unexpected window: %+v", w)
	}
	if !reflect.DeepEqual(w.Words, []string{"die"}) {
		t.Errorf("Expected words [die], got %v", w.Words)
	}
}
