// Package main provides the CLI entry point for mpeg1enc.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/mpeg1enc/pkg/adapters/esmux"
	"github.com/user/mpeg1enc/pkg/adapters/filesink"
	"github.com/user/mpeg1enc/pkg/adapters/ggrenderer"
	"github.com/user/mpeg1enc/pkg/adapters/logger"
	"github.com/user/mpeg1enc/pkg/adapters/mp4mux"
	"github.com/user/mpeg1enc/pkg/adapters/nullsink"
	"github.com/user/mpeg1enc/pkg/adapters/osfilesystem"
	"github.com/user/mpeg1enc/pkg/config"
	"github.com/user/mpeg1enc/pkg/mpeg/encoder"
	"github.com/user/mpeg1enc/pkg/mpeg/motion"
	"github.com/user/mpeg1enc/pkg/orchestrator"
	"github.com/user/mpeg1enc/pkg/ports"
	"github.com/user/mpeg1enc/pkg/preset"
	"github.com/user/mpeg1enc/pkg/stages/encode"
	"github.com/user/mpeg1enc/pkg/stages/mux"
	"github.com/user/mpeg1enc/pkg/stages/probe"
	"github.com/user/mpeg1enc/pkg/summarizer"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Encode  EncodeCmd  `cmd:"" help:"Encode frames into an MPEG-1 video stream."`
	Inspect InspectCmd `cmd:"" help:"Parse an MPEG-1 video stream and list its pictures."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// EncodeCmd defines the encode subcommand.
type EncodeCmd struct {
	// Required arguments
	Input  string `arg:"" help:"Image glob, .yuv/.y4m file, or pattern:N for a synthetic clip."`
	Output string `short:"o" required:"" help:"Output file path (.m1v, .mpg or .mp4)."`

	// Configuration sources
	Config    string `short:"c" help:"YAML configuration file."`
	Preset    string `short:"p" help:"Encoder preset (default, vcd, draft, archive)."`
	Container string `default:"auto" enum:"auto,m1v,mpg,mp4" help:"Container format."`

	// Source
	Width  *int     `short:"W" help:"Frame width for raw YUV input, or the size images are scaled to."`
	Height *int     `short:"H" help:"Frame height for raw YUV input, or the size images are scaled to."`
	FPS    *float64 `name:"fps" help:"Frame rate, mapped to the nearest MPEG-1 picture rate."`
	Start  *int     `help:"First source frame to encode."`
	Frames *int     `short:"n" help:"Number of frames to encode (0 = all)."`

	// Stream structure
	Pattern   *string `short:"P" help:"Picture type pattern in display order, e.g. IBBPBBPBB."`
	GOP       *int    `name:"gop" help:"Minimum number of pictures between GOP headers."`
	Slices    *int    `help:"Slices per picture."`
	UserData  *string `help:"Text stored as user data after the sequence header."`
	ForceLast bool    `help:"Encode trailing frames as P pictures instead of dropping them."`

	// Quantization and rate control
	QI      *int `name:"qi" help:"Quantizer scale for I pictures (1-31)."`
	QP      *int `name:"qp" help:"Quantizer scale for P pictures (1-31)."`
	QB      *int `name:"qb" help:"Quantizer scale for B pictures (1-31)."`
	Bitrate *int `short:"b" help:"Target bit rate in kbit/s (0 = fixed quantizers)."`

	// Motion search
	RangeP    *int    `name:"range-p" help:"P picture search range in full samples."`
	RangeB    *int    `name:"range-b" help:"B picture search range in full samples."`
	FullPel   bool    `help:"Disable half-sample motion refinement."`
	PSearch   *string `name:"p-search" help:"P search (exhaustive, logarithmic, subsample, twolevel)."`
	BSearch   *string `name:"b-search" help:"B search (simple, cross2, exhaustive)."`
	Metric    *string `help:"Matching cost (sad, sse, rate, nodc)."`
	Reference *string `help:"Reference frames for search (decoded, original)."`
	Workers   *int    `help:"Analysis goroutines (0 = one per CPU)."`

	// Reporting
	PSNR     bool   `name:"psnr" help:"Measure PSNR of every picture."`
	NoVerify bool   `help:"Skip parsing the stream before it is written."`
	Summary  string `short:"s" help:"Write a Markdown summary to this path."`
	Debug    bool   `short:"d" help:"Write statistics, stream structure and reconstructed frames."`
	DebugDir string `default:"./debug" help:"Directory for debug output."`

	// Logging options
	LogLevel string `short:"l" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)."`
	Quiet    bool   `short:"Q" help:"Suppress all log output."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("mpeg1enc"),
		kong.Description(l10n.T("Encode image sequences and raw video as MPEG-1 video streams.")),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// Run executes the encode command.
func (cmd *EncodeCmd) Run() error {
	fileCfg, err := cmd.fileConfig()
	if err != nil {
		return err
	}
	orchConfig, err := fileCfg.ToOrchestratorConfig()
	if err != nil {
		return err
	}
	orchConfig.Encoder, err = cmd.encoderConfig(orchConfig.Encoder)
	if err != nil {
		return err
	}

	// Create logger
	level := ports.ParseLogLevel(cmd.LogLevel)
	if cmd.Quiet {
		level = ports.LevelQuiet
	}
	log := logger.New(level)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("Interrupted, shutting down...")
		cancel()
	}()

	// Create adapters
	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	src, closeSource, err := openSource(fileCfg.Input, fs, renderer, sourceOptions{
		Width:     fileCfg.Width,
		Height:    fileCfg.Height,
		FrameRate: fileCfg.FPS,
		Frames:    fileCfg.FrameCount,
	})
	if err != nil {
		return err
	}
	defer closeSource()

	var sink ports.DebugSink
	if fileCfg.Debug {
		if err := fs.MkdirAll(fileCfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(fileCfg.DebugDir, fs, renderer)
	} else {
		sink = nullsink.New()
	}

	orch := orchestrator.New(
		probe.NewStage(log),
		encode.NewStage(sink, log),
		mux.NewStage(newMuxer(fileCfg.Container, fileCfg.OutputPath), log),
		fs,
		sink,
		log,
	)

	log.Info("Encoding %s (%s preset)...", fileCfg.Input, cmd.presetName())
	result, err := orch.Run(ctx, src, orchConfig)
	if err != nil {
		return err
	}

	summary := buildSummary(result, orchConfig.Encoder, cmd.presetName())
	log.Info("Encoded %s", summarizer.Brief.Format(summary))
	if cmd.Summary != "" {
		writer := summarizer.NewWriter(summarizer.NewMarkdownFormatter(
			summarizer.WithTranslator(l10n.T),
			summarizer.WithVersion(version),
		), fs)
		if err := writer.Write(cmd.Summary, summary); err != nil {
			log.Warn("Failed to write summary: %s", err)
		} else {
			log.Info("Summary saved to %s", cmd.Summary)
		}
	}
	return nil
}

// fileConfig loads the YAML file, if any, and applies the flags it covers.
func (cmd *EncodeCmd) fileConfig() (config.Config, error) {
	cfg := config.Defaults()
	if cmd.Config != "" {
		var err error
		if cfg, err = config.LoadFromFile(cmd.Config); err != nil {
			return cfg, err
		}
	}

	cfg.Input = cmd.Input
	cfg.OutputPath = cmd.Output
	if cmd.Container != "auto" {
		cfg.Container = cmd.Container
	}
	if cmd.Width != nil {
		cfg.Width = *cmd.Width
	}
	if cmd.Height != nil {
		cfg.Height = *cmd.Height
	}
	if cmd.FPS != nil {
		cfg.FPS = *cmd.FPS
	}
	if cmd.Start != nil {
		cfg.StartFrame = *cmd.Start
	}
	if cmd.Frames != nil {
		cfg.FrameCount = *cmd.Frames
	}
	if cmd.NoVerify {
		cfg.Verify = false
	}
	if cmd.Debug {
		cfg.Debug = true
		cfg.DebugDir = cmd.DebugDir
	}
	if cmd.Preset == string(preset.VCD) && cfg.Width == 0 && cfg.Height == 0 {
		cfg.Width, cfg.Height = 352, 240
	}
	return cfg, nil
}

// encoderConfig applies the preset and the encoder flags on top of base.
// A preset replaces the file's encoder settings; flags override both.
func (cmd *EncodeCmd) encoderConfig(base encoder.Config) (encoder.Config, error) {
	b := preset.NewConfigBuilderFrom(base)
	if cmd.Preset != "" {
		name, err := preset.Parse(cmd.Preset)
		if err != nil {
			return base, err
		}
		b = preset.NewPresetBuilder(name)
	}

	if cmd.Pattern != nil {
		b.WithPattern(strings.ToUpper(*cmd.Pattern))
	}
	if cmd.GOP != nil {
		b.WithGOPSize(*cmd.GOP)
	}
	if cmd.Slices != nil {
		b.WithSlices(*cmd.Slices)
	}
	if cmd.UserData != nil {
		b.WithUserData(*cmd.UserData)
	}
	if cmd.ForceLast {
		b.WithForceLast(true)
	}
	if cmd.Bitrate != nil {
		b.WithBitRate(preset.KbpsToBits(float64(*cmd.Bitrate)))
	}
	if cmd.FullPel {
		b.WithHalfPel(false)
	}
	if cmd.Reference != nil {
		ref, err := encoder.ParseReferenceMode(*cmd.Reference)
		if err != nil {
			return base, err
		}
		b.WithReference(ref)
	}
	if cmd.Workers != nil {
		b.WithWorkers(*cmd.Workers)
	}
	if cmd.PSNR {
		b.WithPSNR(true)
	}

	// Partial overrides of grouped settings start from the built values.
	cfg := b.Build()
	if cmd.QI != nil {
		cfg.QScale.I = *cmd.QI
	}
	if cmd.QP != nil {
		cfg.QScale.P = *cmd.QP
	}
	if cmd.QB != nil {
		cfg.QScale.B = *cmd.QB
	}
	if cmd.RangeP != nil {
		cfg.SearchRangeP = *cmd.RangeP
	}
	if cmd.RangeB != nil {
		cfg.SearchRangeB = *cmd.RangeB
	}
	var err error
	if cmd.PSearch != nil {
		if cfg.PSearch, err = motion.ParsePSearch(*cmd.PSearch); err != nil {
			return cfg, err
		}
	}
	if cmd.BSearch != nil {
		if cfg.BSearch, err = motion.ParseBSearch(*cmd.BSearch); err != nil {
			return cfg, err
		}
	}
	if cmd.Metric != nil {
		if cfg.Metric, err = motion.ParseMetric(*cmd.Metric); err != nil {
			return cfg, err
		}
	}
	return preset.NewConfigBuilderFrom(cfg).Build(), nil
}

func (cmd *EncodeCmd) presetName() string {
	if cmd.Preset == "" {
		return string(preset.Default)
	}
	return cmd.Preset
}

// newMuxer selects the container from the explicit format or the output
// file extension.
func newMuxer(container, output string) ports.Muxer {
	ext := strings.ToLower(filepath.Ext(output))
	switch container {
	case "mp4":
		return mp4mux.New()
	case "m1v", "mpg":
		return esmux.New("." + container)
	}
	if ext == ".mp4" || ext == ".m4v" {
		return mp4mux.New()
	}
	return esmux.New(ext)
}

func buildSummary(r orchestrator.RunResult, cfg encoder.Config, presetName string) *summarizer.Summary {
	search := fmt.Sprintf("%s/%s, %s", cfg.PSearch, cfg.BSearch, cfg.Metric)
	if cfg.HalfPel {
		search += ", half pel"
	}
	return summarizer.NewBuilder().
		WithSession(r.SessionID).
		WithSource(summarizer.SourceInfo{
			Name:       r.InputName,
			Width:      r.Width,
			Height:     r.Height,
			FrameRate:  r.FrameRate,
			StartFrame: r.StartFrame,
			FrameCount: r.FrameCount,
		}).
		WithSettings(summarizer.Settings{
			Preset:    presetName,
			Pattern:   cfg.Pattern,
			GOPSize:   cfg.GOPSize,
			QScale:    cfg.QScale,
			BitRate:   cfg.BitRate,
			Search:    search,
			Reference: cfg.Reference.String(),
			Container: r.Container,
		}).
		WithStream(summarizer.StreamInfo{
			Path:         r.OutputPath,
			Bytes:        int64(r.StreamBytes),
			FileBytes:    int64(r.FileBytes),
			DurationMs:   int(r.Duration().Milliseconds()),
			GOPs:         r.GOPs,
			Pictures:     r.Pictures,
			Truncated:    r.Truncated,
			EncodeTimeMs: int(r.Elapsed.Milliseconds()),
		}).
		WithStats(r.Stats).
		Build()
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("mpeg1enc version %s", version))
	return nil
}
