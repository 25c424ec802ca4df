package lyrics

import (
	"errors"
	"testing"
)

func TestDecodeTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		expected int
		wantErr  bool
	}{
		{
			name:     "Zero",
			tag:      "[00:00.00]",
			expected: 0,
		},
		{
			name:     "Ten seconds",
			tag:      "[00:10.00]",
			expected: 10000,
		},
		{
			name:     "Minutes and centiseconds",
			tag:      "[01:23.45]",
			expected: 83450,
		},
		{
			name:     "Millisecond fraction",
			tag:      "[00:01.500]",
			expected: 1500,
		},
		{
			name:     "Single digit fraction",
			tag:      "[00:01.5]",
			expected: 1500,
		},
		{
			name:    "Missing brackets",
			tag:     "01:23.45",
			wantErr: true,
		},
		{
			name:    "Metadata tag",
			tag:     "[ar:Artist]",
			wantErr: true,
		},
		{
			name:    "No fraction",
			tag:     "[01:23]",
			wantErr: true,
		},
		{
			name:    "Empty",
			tag:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeTimestamp(tt.tag)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got %d", tt.tag, got)
				}
				if !errors.Is(err, ErrMalformedTimestamp) {
					t.Errorf("Expected ErrMalformedTimestamp, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	// The codec's resolution is one centisecond, so the round-trip holds
	// for every multiple of 10ms up to the 99:59.99 ceiling.
	for ms := 0; ms <= 5999990; ms += 7770 {
		x := ms - ms%10
		tag := EncodeTimestamp(x)
		got, err := DecodeTimestamp(tag)
		if err != nil {
			t.Fatalf("decode(%q) failed: %v", tag, err)
		}
		if got != x {
			t.Fatalf("Round trip failed: %d -> %q -> %d", x, tag, got)
		}
	}

	if EncodeTimestamp(-5) != "[00:00.00]" {
		t.Errorf("Negative offsets should clamp to zero")
	}
}

func TestParseSynced_SortsByOffset(t *testing.T) {
	raw := "[00:15.00]and live again\n[00:10.00]I will die\n[00:20.00]some day"

	lines, skipped := ParseSynced(raw)
	if skipped != 0 {
		t.Errorf("Expected no skipped lines, got %d", skipped)
	}
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	if lines[0].OffsetMs != 10000 || lines[0].Text != "I will die" {
		t.Errorf("Expected first line at 10000 'I will die', got %d %q", lines[0].OffsetMs, lines[0].Text)
	}
	if lines[1].OffsetMs != 15000 {
		t.Errorf("Expected second line at 15000, got %d", lines[1].OffsetMs)
	}
}

func TestParseSynced_SkipsMalformedAndEmpty(t *testing.T) {
	raw := `[ar:Some Artist]
[00:10.00]real line

[00:12.00]
not a tagged line
[bogus]broken
[00:14.00]another line`

	lines, skipped := ParseSynced(raw)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "real line" || lines[1].Text != "another line" {
		t.Errorf("Unexpected lines: %+v", lines)
	}
	// [ar:...] and [bogus] are malformed tags; blank and empty-text lines
	// are dropped without counting.
	if skipped != 2 {
		t.Errorf("Expected 2 skipped lines, got %d", skipped)
	}
}

func TestParseSynced_PreservesDuplicateOffsets(t *testing.T) {
	raw := "[00:10.00]first\n[00:10.00]second"

	lines, _ := ParseSynced(raw)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "first" || lines[1].Text != "second" {
		t.Errorf("Duplicate offsets must preserve parse order, got %+v", lines)
	}
}
