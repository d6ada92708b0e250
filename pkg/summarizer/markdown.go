package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate labels.
func WithTranslator(fn func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = fn
	}
}

// WithVersion adds the encoder version to the report footer.
func WithVersion(version string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = version
	}
}

// NewMarkdownFormatter creates a formatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", t("Encode Summary"))

	// Source
	fmt.Fprintf(&sb, "## %s\n\n", t("Source"))
	sb.WriteString(row(t("Input"), s.Source.Name))
	sb.WriteString(row(t("Size"), fmt.Sprintf("%dx%d", s.Source.Width, s.Source.Height)))
	sb.WriteString(row(t("Frame Rate"), fmt.Sprintf("%.3f fps", s.Source.FrameRate)))
	sb.WriteString(row(t("Frames"), fmt.Sprintf("%d-%d", s.Source.StartFrame, s.Source.StartFrame+s.Source.FrameCount-1)))
	sb.WriteString("\n")

	// Settings
	fmt.Fprintf(&sb, "## %s\n\n", t("Settings"))
	if s.Settings.Preset != "" {
		sb.WriteString(row(t("Preset"), s.Settings.Preset))
	}
	sb.WriteString(row(t("Pattern"), fmt.Sprintf("%s (GOP %d)", s.Settings.Pattern, s.Settings.GOPSize)))
	if s.Settings.BitRate > 0 {
		sb.WriteString(row(t("Rate Control"), formatBitRate(float64(s.Settings.BitRate))))
	} else {
		q := s.Settings.QScale
		sb.WriteString(row(t("Quantizer"), fmt.Sprintf("I %d / P %d / B %d", q.I, q.P, q.B)))
	}
	if s.Settings.Search != "" {
		sb.WriteString(row(t("Motion Search"), s.Settings.Search))
	}
	if s.Settings.Reference != "" {
		sb.WriteString(row(t("Reference"), s.Settings.Reference))
	}
	sb.WriteString("\n")

	// Output
	st := s.Stream
	fmt.Fprintf(&sb, "## %s\n\n", t("Output"))
	if st.Path != "" {
		sb.WriteString(row(t("File"), st.Path))
	}
	if s.Settings.Container != "" {
		sb.WriteString(row(t("Container"), s.Settings.Container))
	}
	sb.WriteString(row(t("Stream Size"), formatBytes(st.Bytes)))
	if st.FileBytes != st.Bytes && st.FileBytes > 0 {
		sb.WriteString(row(t("File Size"), formatBytes(st.FileBytes)))
	}
	sb.WriteString(row(t("Duration"), formatDuration(st.DurationMs)))
	if st.DurationMs > 0 {
		bps := float64(st.Bytes) * 8000 / float64(st.DurationMs)
		sb.WriteString(row(t("Average Bit Rate"), formatBitRate(bps)))
	}
	sb.WriteString(row(t("Pictures"), fmt.Sprintf("%d I, %d P, %d B in %d GOPs", st.Pictures[0], st.Pictures[1], st.Pictures[2], st.GOPs)))
	if st.Truncated > 0 {
		sb.WriteString(row(t("Dropped Frames"), fmt.Sprintf("%d", st.Truncated)))
	}
	if st.CompressionRatio > 0 {
		sb.WriteString(row(t("Compression Ratio"), fmt.Sprintf("%.1f:1", st.CompressionRatio)))
	}
	if st.AveragePSNR > 0 {
		sb.WriteString(row(t("Average PSNR (Y)"), formatPSNR(st.AveragePSNR)))
	}
	if st.QuantRetries > 0 {
		sb.WriteString(row(t("Quantizer Retries"), fmt.Sprintf("%d", st.QuantRetries)))
	}
	if st.EncodeTimeMs > 0 {
		sb.WriteString(row(t("Encode Time"), fmt.Sprintf("%d ms", st.EncodeTimeMs)))
	}
	sb.WriteString("\n")

	// Picture types
	if len(s.Kinds) > 0 {
		fmt.Fprintf(&sb, "## %s\n\n", t("Picture Types"))
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s | %s |\n",
			t("Type"), t("Frames"), t("Intra MB"), t("Inter MB"), t("Skipped MB"), t("Coded Blocks"), t("Avg Size"))
		sb.WriteString("|---|---:|---:|---:|---:|---:|---:|\n")
		for _, k := range s.Kinds {
			if k.Frames == 0 {
				continue
			}
			fmt.Fprintf(&sb, "| %s | %d | %d | %d | %d | %d | %s |\n",
				k.Kind, k.Frames, k.Intra, k.Inter, k.Skipped, k.Blocks, formatBytes(k.AverageBits()/8))
		}
		sb.WriteString("\n")
	}

	// Footer
	sb.WriteString("---\n\n")
	footer := fmt.Sprintf("%s %s", t("Generated at"), s.GeneratedAt.Format(time.RFC3339))
	if f.version != "" {
		footer += fmt.Sprintf(" by mpeg1enc %s", f.version)
	}
	if s.SessionID != "" {
		footer += fmt.Sprintf(" (%s %s)", t("session"), s.SessionID)
	}
	sb.WriteString(footer + "\n")

	return sb.String()
}

func row(label, value string) string {
	return fmt.Sprintf("- **%s**: %s\n", label, value)
}

var _ Formatter = (*MarkdownFormatter)(nil)
