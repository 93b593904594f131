package world

import (
	"sync"

	"github.com/zeusync/enemyai/internal/core/systems/physics"
)

// Body is a physics.Transform that is safe to read while another goroutine
// moves it.
type Body struct {
	mu sync.RWMutex
	t  physics.Transform3D
}

var _ physics.Transform = (*Body)(nil)

func NewBody(pos physics.Vec3) *Body {
	return &Body{t: physics.Transform3D{Pos: pos}}
}

func (b *Body) Position() physics.Vec3 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.t.Position()
}

func (b *Body) SetPosition(p physics.Vec3) {
	b.mu.Lock()
	b.t.SetPosition(p)
	b.mu.Unlock()
}

func (b *Body) Yaw() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.t.Yaw()
}

func (b *Body) SetYaw(yaw float64) {
	b.mu.Lock()
	b.t.SetYaw(yaw)
	b.mu.Unlock()
}
