package soft

import (
	"fmt"

	"github.com/gekko3d/particlelife/rt/gpu"
)

type Buffer struct {
	dev      *Device
	label    string
	usage    gpu.BufferUsage
	data     []byte
	released bool
}

func (b *Buffer) Label() string          { return b.label }
func (b *Buffer) Size() uint64           { return uint64(len(b.data)) }
func (b *Buffer) Usage() gpu.BufferUsage { return b.usage }

// Bytes returns a copy of the buffer contents. It stands in for a mapped
// readback and is meant for tests.
func (b *Buffer) Bytes() []byte {
	return append([]byte(nil), b.data...)
}

func (b *Buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.dev.mu.Lock()
	b.dev.live--
	b.dev.mu.Unlock()
}

func asBuffer(buf gpu.Buffer) (*Buffer, error) {
	b, ok := buf.(*Buffer)
	if !ok || b == nil {
		return nil, fmt.Errorf("%w: not a soft buffer", gpu.ErrValidation)
	}
	if b.released {
		return nil, fmt.Errorf("%w: buffer %q used after release", gpu.ErrValidation, b.label)
	}
	return b, nil
}
