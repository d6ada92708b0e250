package summarizer

import (
	"fmt"
	"math"
	"strconv"
)

// Formatter renders an encode Summary as a report.
type Formatter interface {
	Format(summary *Summary) string
}

// FormatFunc adapts a plain function to Formatter.
type FormatFunc func(summary *Summary) string

// Format implements Formatter.
func (f FormatFunc) Format(summary *Summary) string {
	return f(summary)
}

// Brief is a one-line report for the console.
var Brief = FormatFunc(func(s *Summary) string {
	st := s.Stream
	line := fmt.Sprintf("%d pictures (%d I, %d P, %d B), %s",
		st.Pictures[0]+st.Pictures[1]+st.Pictures[2], st.Pictures[0], st.Pictures[1], st.Pictures[2], formatBytes(st.Bytes))
	if st.DurationMs > 0 {
		line += ", " + formatBitRate(float64(st.Bytes)*8000/float64(st.DurationMs))
	}
	if st.AveragePSNR > 0 {
		line += ", " + formatPSNR(st.AveragePSNR)
	}
	return line
})

// formatBitRate formats bits per second in kbit/s, switching to Mbit/s
// from 10 Mbit/s on.
func formatBitRate(bps float64) string {
	if bps >= 10e6 {
		return fmt.Sprintf("%.2f Mbit/s", bps/1e6)
	}
	kbps := math.Round(bps/100) / 10
	return strconv.FormatFloat(kbps, 'f', -1, 64) + " kbit/s"
}

// formatPSNR formats a luminance PSNR. The encoder reports 99 dB for
// pictures that reconstruct exactly.
func formatPSNR(db float64) string {
	if db >= 99 {
		return "lossless"
	}
	return fmt.Sprintf("%.2f dB", db)
}

func formatDuration(ms int) string {
	if ms < 1000 {
		return fmt.Sprintf("%d ms", ms)
	}
	return fmt.Sprintf("%.2f s", float64(ms)/1000)
}

// formatBytes formats a byte count with a binary unit.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit && exp < 2; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMG"[exp])
}
