package encoder

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"github.com/user/mpeg1enc/pkg/mpeg/bitio"
	"github.com/user/mpeg1enc/pkg/mpeg/frame"
	"github.com/user/mpeg1enc/pkg/mpeg/mode"
	"github.com/user/mpeg1enc/pkg/mpeg/motion"
	"github.com/user/mpeg1enc/pkg/mpeg/quant"
	"github.com/user/mpeg1enc/pkg/mpeg/ratectl"
	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
	"github.com/user/mpeg1enc/pkg/ports"
)

// Result is a finished encode.
type Result struct {
	// Data is the complete elementary stream, ending with the sequence end code.
	Data  []byte
	Stats *Stats
	Plan  Plan
	// AccessUnits holds the byte offset at which each picture starts in
	// coding order, including any sequence or GOP header in front of it,
	// followed by len(Data).
	AccessUnits []int
}

// StreamInfo describes the stream for a container muxer.
func (r *Result) StreamInfo(width, height int, fps float64) ports.StreamInfo {
	info := ports.StreamInfo{
		Width:          width,
		Height:         height,
		FrameRate:      fps,
		DisplayOrder:   make([]int, len(r.Plan.Steps)),
		PictureOffsets: r.AccessUnits,
		Sync:           make([]bool, len(r.Plan.Steps)),
	}
	for i, step := range r.Plan.Steps {
		info.DisplayOrder[i] = step.Display
		info.Sync[i] = step.Kind == frame.Intra
	}
	return info
}

// Truncated returns the number of trailing frames dropped from the stream.
func (r *Result) Truncated() int {
	return r.Plan.Truncated
}

// Context is the encoder state of one stream. It is not safe for
// concurrent use; independent streams use independent contexts.
type Context struct {
	cfg     Config
	log     ports.Logger
	est     *motion.Estimator
	quant   *quant.Quantizer
	rc      *ratectl.Controller
	pool    *frame.Pool
	w       *bitio.Writer
	coder   *syntax.Coder
	slices  []mode.Slice
	records []record
	stats   Stats
	workers int

	mbWidth  int
	mbHeight int
	fCodeP   int
	fCodeB   int

	onRecon func(display int, img image.Image)
}

// NewContext validates cfg and prepares an encoder. log may be nil.
func NewContext(cfg Config, log ports.Logger) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = nopLogger{}
	}
	mbw, mbh := frame.MacroblockDims(cfg.Width, cfg.Height)
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	c := &Context{
		cfg:      cfg,
		log:      log,
		est:      motion.New(cfg.motionConfig(), mbw*16, mbh*16),
		quant:    quant.New(cfg.IntraMatrix, cfg.NonIntraMatrix),
		pool:     frame.NewPool(mbw, mbh),
		slices:   mode.Slices(mbw, mbh, cfg.SlicesPerFrame),
		records:  make([]record, mbw*mbh),
		workers:  workers,
		mbWidth:  mbw,
		mbHeight: mbh,
		fCodeP:   motion.FCodeFor(cfg.SearchRangeP, cfg.HalfPel),
		fCodeB:   motion.FCodeFor(cfg.SearchRangeB, cfg.HalfPel),
	}
	return c, nil
}

// OnReconstructed registers a callback receiving every reconstructed
// frame in coding order. It forces reconstruction of all frames.
func (c *Context) OnReconstructed(fn func(display int, img image.Image)) {
	c.onRecon = fn
}

// Config returns the validated configuration.
func (c *Context) Config() Config {
	return c.cfg
}

// frameCount resolves the encoded range against the source.
func (c *Context) frameCount(info ports.SourceInfo) (int, error) {
	if info.Width != c.cfg.Width || info.Height != c.cfg.Height {
		return 0, fmt.Errorf("%w: source is %dx%d, configured %dx%d",
			ErrInvalidConfig, info.Width, info.Height, c.cfg.Width, c.cfg.Height)
	}
	n := c.cfg.FrameCount
	if n == 0 {
		n = info.FrameCount - c.cfg.StartFrame
	}
	if n <= 0 || c.cfg.StartFrame+n > info.FrameCount {
		return 0, fmt.Errorf("%w: frames %d-%d requested from a source of %d",
			ErrInvalidConfig, c.cfg.StartFrame, c.cfg.StartFrame+n-1, info.FrameCount)
	}
	return n, nil
}

// Encode reads the configured range from src and returns the complete
// stream. Nothing is returned on failure; the in-memory stream is
// discarded so an aborted encode never yields partial output.
func (c *Context) Encode(ctx context.Context, src ports.FrameSource) (*Result, error) {
	info, err := src.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("source info: %w", err)
	}
	n, err := c.frameCount(info)
	if err != nil {
		return nil, err
	}
	pattern, err := frame.ParsePattern(c.cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	plan, err := Sequence(DisplayKinds(pattern, n, c.cfg.ForceEncodeLast), c.cfg.GOPSize)
	if err != nil {
		return nil, err
	}
	if plan.Truncated > 0 {
		c.log.Warn("Dropping %d trailing frames without a future reference", plan.Truncated)
	}

	if err := c.reset(); err != nil {
		return nil, err
	}
	c.stats.Truncated = plan.Truncated
	c.stats.SourceBytes = int64(len(plan.Steps)) * int64(c.cfg.Width*c.cfg.Height+2*((c.cfg.Width+1)/2)*((c.cfg.Height+1)/2))

	fetch := &fetcher{
		src:     src,
		start:   c.cfg.StartFrame,
		retries: c.cfg.ReadRetries,
		delay:   c.cfg.RetryDelay,
		log:     c.log,
		pool:    c.pool,
		width:   c.cfg.Width,
		height:  c.cfg.Height,
	}
	units, err := c.run(ctx, plan, fetch)
	c.stats.ReadRetries = fetch.retried
	if err != nil {
		return nil, err
	}
	data := make([]byte, c.w.Len())
	copy(data, c.w.Bytes())
	stats := c.stats
	return &Result{Data: data, Stats: &stats, Plan: plan, AccessUnits: units}, nil
}

// reset prepares per-stream state so a context can encode again.
func (c *Context) reset() error {
	c.w = bitio.NewWriter(c.cfg.Width * c.cfg.Height)
	c.coder = syntax.NewCoder(c.w, c.mbWidth)
	c.stats = Stats{}
	c.rc = nil
	if c.cfg.BitRate > 0 {
		rc, err := ratectl.New(ratectl.Config{
			BitRate:    c.cfg.BitRate,
			FrameRate:  syntax.PictureRates[c.cfg.RateCode()],
			BufferSize: c.cfg.bufferSize(),
			MBCount:    c.mbWidth * c.mbHeight,
		}, c.log.WithComponent("ratectl"))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		c.rc = rc
	}
	return nil
}

func (c *Context) sequenceHeader() syntax.SequenceHeader {
	h := syntax.SequenceHeader{
		Width:          c.cfg.Width,
		Height:         c.cfg.Height,
		AspectCode:     c.cfg.AspectCode,
		RateCode:       c.cfg.RateCode(),
		VBVBufferSize:  (c.cfg.bufferSize() + 16383) / 16384,
		IntraMatrix:    c.cfg.IntraMatrix,
		NonIntraMatrix: c.cfg.NonIntraMatrix,
	}
	if c.cfg.BitRate > 0 {
		h.BitRate = (c.cfg.BitRate + 399) / 400
	}
	return h
}

// run emits the whole stream in plan order.
func (c *Context) run(ctx context.Context, plan Plan, fetch *fetcher) ([]int, error) {
	if err := c.sequenceHeader().Write(c.w); err != nil {
		return nil, fmt.Errorf("sequence header: %w", err)
	}
	if c.cfg.UserData != "" {
		if err := syntax.WriteUserData(c.w, []byte(c.cfg.UserData)); err != nil {
			return nil, err
		}
	}
	c.stats.HeaderBits = c.w.BitCount()

	units := make([]int, 0, len(plan.Steps)+1)
	var refs []*frame.Frame
	defer func() {
		for _, f := range refs {
			f.Release()
		}
	}()
	lookup := func(display int) *frame.Frame {
		for _, f := range refs {
			if f.Number == display {
				return f
			}
		}
		return nil
	}

	for ci, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.w.Align()
		if ci > 0 {
			units = append(units, c.w.Len())
		} else {
			units = append(units, 0)
		}
		if step.GOPStart {
			before := c.w.BitCount()
			syntax.GOPHeader{
				TimeCode: syntax.TimeCodeAt(step.GOPBase, c.cfg.RateCode()),
				Closed:   step.Closed,
			}.Write(c.w)
			c.stats.HeaderBits += c.w.BitCount() - before
			if c.rc != nil {
				c.rc.StartGOP(step.Counts)
			}
		}

		cur, err := fetch.read(ctx, step.Display, step.Kind)
		if err != nil {
			return nil, err
		}
		var past, future *frame.Frame
		if step.Past >= 0 {
			past = lookup(step.Past)
		}
		if step.Future >= 0 {
			future = lookup(step.Future)
		}
		if (step.Past >= 0 && past == nil) || (step.Future >= 0 && future == nil) {
			cur.Release()
			return nil, fmt.Errorf("frame %d: reference frame not available", step.Display)
		}

		fs, err := c.encodePicture(ctx, ci, step, cur, past, future)
		if err != nil {
			cur.Release()
			return nil, fmt.Errorf("encode frame %d: %w", c.cfg.StartFrame+step.Display, err)
		}
		c.stats.Frames = append(c.stats.Frames, fs)

		if step.Kind.IsReference() {
			refs = append(refs, cur)
			if len(refs) > 2 {
				refs[0].Release()
				refs = refs[1:]
			}
		} else {
			cur.Release()
		}
	}

	before := c.w.BitCount()
	syntax.WriteSequenceEnd(c.w)
	c.stats.HeaderBits += c.w.BitCount() - before
	c.stats.TotalBits = c.w.BitCount()
	if c.rc != nil {
		c.stats.BufferUnder, c.stats.BufferOver = c.rc.BufferViolations()
	}
	units = append(units, c.w.Len())
	return units, nil
}

// Encode is a convenience wrapper creating a context for a single stream.
func Encode(ctx context.Context, cfg Config, src ports.FrameSource, log ports.Logger) (*Result, error) {
	c, err := NewContext(cfg, log)
	if err != nil {
		return nil, err
	}
	return c.Encode(ctx, src)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}

func (nopLogger) Info(string, ...interface{}) {}

func (nopLogger) Warn(string, ...interface{}) {}

func (nopLogger) Error(string, ...interface{}) {}

func (l nopLogger) WithComponent(string) ports.Logger { return l }
