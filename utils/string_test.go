package utils

import "testing"

func TestCompressDecompressRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Empty string", ""},
		{"Short text", "hello"},
		{"LRC content", "[00:10.00]I will die\n[00:15.00]and live again"},
		{"Unicode", "смерть 死 موت"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := CompressString(tt.input)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			got, err := DecompressString(compressed)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if got != tt.input {
				t.Errorf("Round trip mismatch: %q -> %q", tt.input, got)
			}
		})
	}
}

func TestDecompressString_InvalidInput(t *testing.T) {
	if _, err := DecompressString("not base64!!!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
	if _, err := DecompressString("aGVsbG8="); err == nil {
		t.Error("Expected error for non-gzip payload")
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name     string
		parts    []string
		expected string
	}{
		{
			name:     "Casing and whitespace",
			parts:    []string{"  Shape of  You ", "Ed Sheeran"},
			expected: "shape of you|ed sheeran",
		},
		{
			name:     "Empty part preserved as slot",
			parts:    []string{"title", "", "album"},
			expected: "title||album",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.parts...); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
