package frame

import "sync"

// Pool recycles plane sets of one macroblock geometry.
type Pool struct {
	mbWidth  int
	mbHeight int
	pool     sync.Pool
}

// NewPool creates a pool for mbWidth x mbHeight macroblock planes.
func NewPool(mbWidth, mbHeight int) *Pool {
	p := &Pool{mbWidth: mbWidth, mbHeight: mbHeight}
	p.pool.New = func() any {
		return NewPlanes(mbWidth, mbHeight)
	}
	return p
}

// Get returns a plane set. Contents are unspecified.
func (p *Pool) Get() *Planes {
	return p.pool.Get().(*Planes)
}

// Put returns a plane set obtained from Get.
func (p *Pool) Put(planes *Planes) {
	if planes == nil || planes.MBWidth() != p.mbWidth || planes.MBHeight() != p.mbHeight {
		return
	}
	p.pool.Put(planes)
}

// NewFrame allocates a frame whose planes come from the pool.
func (p *Pool) NewFrame(number int, kind Kind) *Frame {
	f := New(number, kind, p.Get())
	f.pool = p
	return f
}
