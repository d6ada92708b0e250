// Package orchestrator coordinates all pipeline stages.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/user/mpeg1enc/pkg/mpeg/encoder"
	"github.com/user/mpeg1enc/pkg/mpeg/inspect"
	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
	"github.com/user/mpeg1enc/pkg/pipeline"
	"github.com/user/mpeg1enc/pkg/ports"
)

// Config contains all configuration for the orchestrator.
type Config struct {
	// Input
	InputName  string // shown in logs and the summary only
	OutputPath string

	// Range
	StartFrame int
	FrameCount int

	// Encoding. Width, Height, StartFrame and FrameCount are filled in
	// from the probed source.
	Encoder encoder.Config
	// FrameRate overrides the source timing when positive.
	FrameRate float64

	// Debug output
	SaveReconstructed bool
	// Verify parses the finished stream before it is written.
	Verify bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		OutputPath: "output.m1v",
		Encoder:    encoder.DefaultConfig(0, 0),
		Verify:     true,
	}
}

// Orchestrator coordinates the execution of all pipeline stages.
type Orchestrator struct {
	probeStage  pipeline.Stage[pipeline.ProbeInput, pipeline.ProbeResult]
	encodeStage pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult]
	muxStage    pipeline.Stage[pipeline.MuxInput, pipeline.MuxResult]
	fs          ports.FileSystem
	sink        ports.DebugSink
	logger      ports.Logger
}

// New creates a new Orchestrator.
func New(
	probeStage pipeline.Stage[pipeline.ProbeInput, pipeline.ProbeResult],
	encodeStage pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult],
	muxStage pipeline.Stage[pipeline.MuxInput, pipeline.MuxResult],
	fs ports.FileSystem,
	sink ports.DebugSink,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		probeStage:  probeStage,
		encodeStage: encodeStage,
		muxStage:    muxStage,
		fs:          fs,
		sink:        sink,
		logger:      logger,
	}
}

// Run executes the complete pipeline. The output file is written only
// after every stage has succeeded.
func (o *Orchestrator) Run(ctx context.Context, src ports.FrameSource, config Config) (RunResult, error) {
	started := time.Now()
	session := uuid.NewString()
	o.logger.Info("Starting encode session %s", session)

	// 1. Probe source
	probed, err := o.probeStage.Execute(ctx, pipeline.ProbeInput{
		Source:     src,
		StartFrame: config.StartFrame,
		FrameCount: config.FrameCount,
	})
	if err != nil {
		o.logger.Error("Failed to probe source: %s", err)
		return RunResult{}, fmt.Errorf("probe stage: %w", err)
	}

	// 2. Encode
	encodeInput := o.buildEncodeInput(src, config, probed)
	encoded, err := o.encodeStage.Execute(ctx, encodeInput)
	if err != nil {
		o.logger.Error("Failed to encode video: %s", err)
		return RunResult{}, fmt.Errorf("encode stage: %w", err)
	}
	if encoded.Truncated > 0 {
		o.logger.Warn("%d trailing frames were not encoded", encoded.Truncated)
	}
	o.logger.Info("Video encoded: %d bytes", len(encoded.Data))

	if o.sink.Enabled() && encoded.Stats != nil {
		if data, err := json.MarshalIndent(encoded.Stats, "", "  "); err == nil {
			o.sink.SaveStatsJSON(data)
		}
	}

	// 3. Verify
	var stream *inspect.Stream
	if config.Verify || o.sink.Enabled() {
		stream, err = inspect.Parse(encoded.Data, inspect.Options{})
		if err != nil {
			o.logger.Error("Encoded stream failed verification: %s", err)
			return RunResult{}, fmt.Errorf("verify: %w", err)
		}
		if want := len(encoded.Stream.DisplayOrder); config.Verify && len(stream.Pictures) != want {
			return RunResult{}, fmt.Errorf("verify: stream holds %d pictures, encoded %d", len(stream.Pictures), want)
		}
		if o.sink.Enabled() {
			if data, err := json.MarshalIndent(stream, "", "  "); err == nil {
				o.sink.SaveInspectJSON(data)
			}
		}
	}

	// 4. Mux
	muxed, err := o.muxStage.Execute(ctx, pipeline.MuxInput{Elementary: encoded.Data, Stream: encoded.Stream})
	if err != nil {
		o.logger.Error("Failed to build container: %s", err)
		return RunResult{}, fmt.Errorf("mux stage: %w", err)
	}

	// 5. Write output file
	if err := ctx.Err(); err != nil {
		return RunResult{}, err
	}
	if err := o.fs.WriteFile(config.OutputPath, muxed.Data); err != nil {
		o.logger.Error("Failed to write output: %s", err)
		return RunResult{}, fmt.Errorf("write output: %w", err)
	}
	o.logger.Info("Output saved to %s", config.OutputPath)

	result := RunResult{
		SessionID:   session,
		InputName:   config.InputName,
		OutputPath:  config.OutputPath,
		Container:   muxed.Extension,
		Width:       encodeInput.Config.Width,
		Height:      encodeInput.Config.Height,
		FrameRate:   encoded.Stream.FrameRate,
		StartFrame:  probed.StartFrame,
		FrameCount:  probed.FrameCount,
		Truncated:   encoded.Truncated,
		StreamBytes: len(encoded.Data),
		FileBytes:   len(muxed.Data),
		Pattern:     encodeInput.Config.Pattern,
		BitRate:     encodeInput.Config.BitRate,
		Stats:       encoded.Stats,
		Elapsed:     time.Since(started),
	}
	if stream != nil {
		result.GOPs = len(stream.GOPs)
		counts := stream.Counts()
		result.Pictures = [3]int{counts[syntax.PictureI], counts[syntax.PictureP], counts[syntax.PictureB]}
	}
	return result, nil
}

func (o *Orchestrator) buildEncodeInput(src ports.FrameSource, config Config, probed pipeline.ProbeResult) pipeline.EncodeInput {
	cfg := config.Encoder
	cfg.Width = probed.Info.Width
	cfg.Height = probed.Info.Height
	cfg.StartFrame = probed.StartFrame
	cfg.FrameCount = probed.FrameCount
	switch {
	case config.FrameRate > 0:
		cfg.FrameRate = config.FrameRate
	case probed.Info.FrameRate > 0:
		cfg.FrameRate = probed.Info.FrameRate
	}
	return pipeline.EncodeInput{
		Source:            src,
		Config:            cfg,
		SaveReconstructed: config.SaveReconstructed,
	}
}

// RunResult contains the results of a pipeline run for summary generation.
type RunResult struct {
	SessionID  string
	InputName  string
	OutputPath string
	Container  string

	// Source information
	Width      int
	Height     int
	FrameRate  float64
	StartFrame int
	FrameCount int
	Truncated  int

	// Stream information
	StreamBytes int
	FileBytes   int
	Pattern     string
	// BitRate is the target, 0 for a fixed quantizer.
	BitRate int
	GOPs    int
	// Pictures counts I, P and B pictures in the verified stream.
	Pictures [3]int
	Stats    *encoder.Stats

	Elapsed time.Duration
}

// Duration returns the playing time of the encoded pictures.
func (r RunResult) Duration() time.Duration {
	if r.FrameRate <= 0 {
		return 0
	}
	n := r.FrameCount - r.Truncated
	return time.Duration(float64(n) / r.FrameRate * float64(time.Second))
}

// AverageBitRate returns the achieved bit rate in bits per second.
func (r RunResult) AverageBitRate() float64 {
	d := r.Duration().Seconds()
	if d <= 0 {
		return 0
	}
	return float64(r.StreamBytes) * 8 / d
}
