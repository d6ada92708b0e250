package summarizer

import (
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
		{1536 * 1024 * 1024, "1.50 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := formatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(40); got != "40 ms" {
		t.Errorf("formatDuration(40) = %q", got)
	}
	if got := formatDuration(1500); got != "1.50 s" {
		t.Errorf("formatDuration(1500) = %q", got)
	}
}

func TestFormatBitRate(t *testing.T) {
	tests := []struct {
		bps  float64
		want string
	}{
		{400, "0.4 kbit/s"},
		{1_150_000, "1150 kbit/s"},
		{4_194_304, "4194.3 kbit/s"},
		{9_999_900, "9999.9 kbit/s"},
		{15_000_000, "15.00 Mbit/s"},
	}
	for _, tt := range tests {
		if got := formatBitRate(tt.bps); got != tt.want {
			t.Errorf("formatBitRate(%g) = %q, want %q", tt.bps, got, tt.want)
		}
	}
}

func TestFormatPSNR(t *testing.T) {
	if got := formatPSNR(38.123); got != "38.12 dB" {
		t.Errorf("formatPSNR(38.123) = %q", got)
	}
	if got := formatPSNR(99); got != "lossless" {
		t.Errorf("formatPSNR(99) = %q", got)
	}
}

func TestBrief_Format(t *testing.T) {
	s := sampleSummary()
	want := "50 pictures (5 I, 13 P, 32 B), 1.00 MB, 4194.3 kbit/s"
	if got := Brief.Format(s); got != want {
		t.Errorf("Brief = %q, want %q", got, want)
	}
	s.Stream.DurationMs = 0
	s.Stream.AveragePSNR = 99
	want = "50 pictures (5 I, 13 P, 32 B), 1.00 MB, lossless"
	if got := Brief.Format(s); got != want {
		t.Errorf("Brief = %q, want %q", got, want)
	}
}
