// Package ratectl implements the two-level (picture target, macroblock
// adaptation) rate controller known as Test Model 5, together with a
// simulation of the decoder's video buffer.
package ratectl

import (
	"errors"
	"fmt"
	"math"

	"github.com/user/mpeg1enc/pkg/mpeg/frame"
	"github.com/user/mpeg1enc/pkg/ports"
)

// ErrInvalidConfig is returned for a configuration the controller cannot run with.
var ErrInvalidConfig = errors.New("invalid rate control configuration")

// Importance weights of P and B pictures relative to I pictures.
const (
	weightP = 1.0
	weightB = 1.4
)

// initialActivity seeds the running average spatial activity.
const initialActivity = 400

// Config holds the stream-wide rate parameters.
type Config struct {
	BitRate    int     // bits per second
	FrameRate  float64 // pictures per second
	BufferSize int     // decoder buffer size in bits, 0 disables buffer tracking
	MBCount    int     // macroblocks per picture
}

// Controller is the rate control state of one stream. It is not safe for
// concurrent use; one encoder context owns one controller.
type Controller struct {
	cfg Config
	log ports.Logger

	complexity [3]float64 // X per kind
	fullness   [3]float64 // virtual buffer d per kind
	weight     [3]float64 // K per kind
	remaining  float64    // R
	left       [3]int     // pictures per kind still to code in the GOP
	reaction   float64    // r
	floor      float64
	avgAct     float64

	gopBudget float64
	gopSpent  int

	// current picture
	kind    frame.Kind
	target  float64
	start   float64 // d at picture start
	sumAct  float64
	sumQ    int
	coded   int
	picture bool

	vbv       float64
	underflow int
	overflow  int
}

// New returns a controller for cfg. log may be nil.
func New(cfg Config, log ports.Logger) (*Controller, error) {
	if cfg.BitRate <= 0 || cfg.FrameRate <= 0 || cfg.MBCount <= 0 {
		return nil, fmt.Errorf("%w: bit rate %d, frame rate %g, %d macroblocks",
			ErrInvalidConfig, cfg.BitRate, cfg.FrameRate, cfg.MBCount)
	}
	if cfg.BufferSize < 0 {
		return nil, fmt.Errorf("%w: buffer size %d", ErrInvalidConfig, cfg.BufferSize)
	}
	br := float64(cfg.BitRate)
	c := &Controller{
		cfg:      cfg,
		log:      log,
		weight:   [3]float64{1, weightP, weightB},
		reaction: 2 * br / cfg.FrameRate,
		floor:    br / (8 * cfg.FrameRate),
		avgAct:   initialActivity,
	}
	c.complexity = [3]float64{160 * br / 115, 60 * br / 115, 42 * br / 115}
	d0 := 10 * c.reaction / 31
	c.fullness = [3]float64{d0, weightP * d0, weightB * d0}
	c.vbv = float64(cfg.BufferSize) * 7 / 8
	return c, nil
}

// StartGOP adds one group's allocation to the remaining budget. counts
// holds the number of pictures of each kind in the group.
func (c *Controller) StartGOP(counts [3]int) {
	n := counts[0] + counts[1] + counts[2]
	budget := float64(c.cfg.BitRate) * float64(n) / c.cfg.FrameRate
	c.remaining += budget
	c.gopBudget = c.remaining
	c.gopSpent = 0
	c.left = counts
	if c.log != nil {
		c.log.Debug("GOP budget %.0f bits for %d pictures", c.gopBudget, n)
	}
}

// StartPicture computes the bit target of the next picture in coding order.
func (c *Controller) StartPicture(kind frame.Kind) float64 {
	if c.left[kind] < 1 {
		// More pictures of this kind than announced; count this one.
		c.left[kind] = 1
	}
	var sum float64
	for k := range c.left {
		sum += float64(c.left[k]) * c.complexity[k] / c.weight[k]
	}
	target := c.remaining * (c.complexity[kind] / c.weight[kind]) / sum
	c.target = math.Max(target, c.floor)
	c.kind = kind
	c.start = c.fullness[kind]
	c.sumAct = 0
	c.sumQ = 0
	c.coded = 0
	c.picture = true
	return c.target
}

// MacroblockQuant returns the quantizer scale for macroblock index j of the
// current picture given the bits spent on the picture so far and the
// macroblock's spatial activity (1 + minimum luminance sub-block variance).
func (c *Controller) MacroblockQuant(j, bits, activity int) int {
	d := c.start + float64(bits) - c.target*float64(j)/float64(c.cfg.MBCount)
	q := d * 31 / c.reaction
	act := float64(activity)
	nact := (2*act + c.avgAct) / (act + 2*c.avgAct)
	mq := int(q*nact + 0.5)
	if mq < 1 {
		mq = 1
	}
	if mq > 31 {
		mq = 31
	}
	c.sumAct += act
	c.sumQ += mq
	c.coded++
	return mq
}

// EndPicture updates complexity, virtual buffer and budget with the bits
// actually produced by the picture.
func (c *Controller) EndPicture(bits int) {
	if !c.picture {
		return
	}
	c.picture = false
	s := float64(bits)
	if c.coded > 0 {
		avgQ := float64(c.sumQ) / float64(c.coded)
		c.complexity[c.kind] = s * avgQ
		c.avgAct = c.sumAct / float64(c.coded)
	}
	c.fullness[c.kind] = c.start + s - c.target
	c.remaining -= s
	c.gopSpent += bits
	if c.left[c.kind] > 0 {
		c.left[c.kind]--
	}
	c.trackBuffer(bits)
	if c.log != nil {
		c.log.Debug("%s picture: target %.0f, produced %d bits", c.kind, c.target, bits)
	}
}

func (c *Controller) trackBuffer(bits int) {
	size := float64(c.cfg.BufferSize)
	if size == 0 {
		return
	}
	c.vbv -= float64(bits)
	if c.vbv < 0 {
		c.underflow++
		if c.log != nil {
			c.log.Warn("Video buffer underflow by %.0f bits", -c.vbv)
		}
		c.vbv = 0
	}
	c.vbv += float64(c.cfg.BitRate) / c.cfg.FrameRate
	if c.vbv > size {
		c.overflow++
		if c.log != nil {
			c.log.Debug("Video buffer full, %.0f bits of stuffing", c.vbv-size)
		}
		c.vbv = size
	}
}

// Floor returns the minimum bit target of any picture.
func (c *Controller) Floor() float64 {
	return c.floor
}

// GOPOvershoot returns the bits spent on the current group beyond its budget.
// Negative values mean the group is under budget.
func (c *Controller) GOPOvershoot() float64 {
	return float64(c.gopSpent) - c.gopBudget
}

// BufferFullness returns the simulated decoder buffer fullness in bits.
func (c *Controller) BufferFullness() float64 {
	return c.vbv
}

// BufferViolations returns the number of simulated underflows and overflows.
func (c *Controller) BufferViolations() (underflow, overflow int) {
	return c.underflow, c.overflow
}

// VBVDelay returns the vbv_delay field for the next picture in 90 kHz
// ticks, or 0xFFFF when the buffer is not tracked.
func (c *Controller) VBVDelay() int {
	if c.cfg.BufferSize == 0 {
		return 0xFFFF
	}
	delay := int(c.vbv * 90000 / float64(c.cfg.BitRate))
	if delay > 0xFFFE {
		delay = 0xFFFE
	}
	return delay
}
