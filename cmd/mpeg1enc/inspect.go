package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ideamans/go-l10n"

	"github.com/user/mpeg1enc/pkg/adapters/mp4mux"
	"github.com/user/mpeg1enc/pkg/mpeg/inspect"
	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
)

// InspectCmd defines the inspect subcommand.
type InspectCmd struct {
	Input       string `arg:"" help:"MPEG-1 video stream (.m1v, .mpg) or MP4 file."`
	JSON        bool   `name:"json" help:"Print the parsed structure as JSON."`
	Macroblocks bool   `help:"Include every macroblock (JSON output only)."`
}

// Run executes the inspect command.
func (cmd *InspectCmd) Run() error {
	data, err := os.ReadFile(cmd.Input)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(cmd.Input)) {
	case ".mp4", ".m4v":
		if data, _, err = mp4mux.Demux(data); err != nil {
			return fmt.Errorf("%s: %w", cmd.Input, err)
		}
	}
	stream, err := inspect.Parse(data, inspect.Options{KeepMacroblocks: cmd.Macroblocks && cmd.JSON})
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Input, err)
	}

	if cmd.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stream)
	}
	printStream(os.Stdout, stream, len(data))
	return nil
}

func printStream(w io.Writer, s *inspect.Stream, size int) {
	seq := s.Sequence
	if seq == nil {
		fmt.Fprintln(w, l10n.T("No sequence header"))
		return
	}
	var fps float64
	if seq.RateCode < len(syntax.PictureRates) {
		fps = syntax.PictureRates[seq.RateCode]
	}
	fmt.Fprintln(w, l10n.F("Sequence: %dx%d, %.3f fps, aspect code %d", seq.Width, seq.Height, fps, seq.AspectCode))
	if seq.BitRate == 0x3FFFF {
		fmt.Fprintln(w, l10n.F("Bit rate: variable, buffer %d bits", seq.VBVBufferSize*16384))
	} else {
		fmt.Fprintln(w, l10n.F("Bit rate: %d bit/s, buffer %d bits", seq.BitRate*400, seq.VBVBufferSize*16384))
	}
	if seq.CustomIntra || seq.CustomNonIntra {
		fmt.Fprintln(w, l10n.F("Custom matrices: intra %v, non-intra %v", seq.CustomIntra, seq.CustomNonIntra))
	}
	for _, ud := range s.UserData {
		fmt.Fprintln(w, l10n.F("User data: %q", ud))
	}

	counts := s.Counts()
	fmt.Fprintln(w, l10n.F("%d bytes, %d GOPs, %d pictures (%d I, %d P, %d B)", size, len(s.GOPs), len(s.Pictures),
		counts[syntax.PictureI], counts[syntax.PictureP], counts[syntax.PictureB]))
	fmt.Fprintln(w)

	gop := 0
	for i, p := range s.Pictures {
		if gop < len(s.GOPs) && s.GOPs[gop].FirstPicture == i {
			g := s.GOPs[gop]
			tc := g.TimeCode
			fmt.Fprintf(w, "GOP %02d:%02d:%02d.%02d closed=%v broken=%v\n", tc.Hours, tc.Minutes, tc.Seconds, tc.Pictures, g.Closed, g.BrokenLink)
			gop++
		}
		fmt.Fprintf(w, "  %4d %s tr=%-3d %7d bits  q %2d-%-2d  intra %4d  inter %4d  skipped %4d  blocks %5d\n",
			p.CodingIndex, p.Type, p.TemporalReference, p.Bits, p.MinQ, p.MaxQ, p.Intra, p.Inter, p.Skipped, p.CodedBlocks)
	}
	if !s.Ended {
		fmt.Fprintln(w, l10n.T("Warning: stream has no sequence end code"))
	}
}
