package render

import (
	"github.com/gogpu/gputypes"

	"github.com/hupe1980/annostore/serialize"
)

type fakeBuffer struct {
	label     string
	usage     gputypes.BufferUsage
	uploads   [][]byte
	binds     int
	destroyed bool
}

func (b *fakeBuffer) Upload(data []byte) { b.uploads = append(b.uploads, append([]byte(nil), data...)) }
func (b *fakeBuffer) Bind()              { b.binds++ }
func (b *fakeBuffer) Destroy()           { b.destroyed = true }

type fakeDevice struct {
	buffers []*fakeBuffer
}

func (d *fakeDevice) CreateBuffer(label string, usage gputypes.BufferUsage) GPUBuffer {
	b := &fakeBuffer{label: label, usage: usage}
	d.buffers = append(d.buffers, b)
	return b
}

type registration struct {
	base  uint64
	n     int
	owner Pickable
	data  *serialize.Serialized
}

type fakePicks struct {
	next uint64
	regs []registration
}

func newFakePicks() *fakePicks { return &fakePicks{next: 1} }

func (p *fakePicks) Allocate(n int) uint64 {
	base := p.next
	p.next += uint64(n)
	return base
}

func (p *fakePicks) Register(base uint64, n int, owner Pickable, data *serialize.Serialized) {
	p.regs = append(p.regs, registration{base: base, n: n, owner: owner, data: data})
}

// pick dispatches a picked id the way a render backend would.
func (p *fakePicks) pick(id uint64, m *MouseState) bool {
	for _, r := range p.regs {
		if id >= r.base && id < r.base+uint64(r.n) {
			r.owner.UpdateMouseState(m, int(id-r.base), r.data)
			return true
		}
	}
	return false
}

type fakeDrawer struct {
	calls []DrawCall
}

func (d *fakeDrawer) Draw(call *DrawCall) { d.calls = append(d.calls, *call) }
