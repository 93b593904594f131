package npc

import (
	"sync"

	"github.com/zeusync/enemyai/internal/core/systems/physics"
)

const testPlayer EntityID = 99

// stubWorld is a minimal DataProvider. A nil player means no player exists.
type stubWorld struct {
	mu      sync.RWMutex
	player  *physics.Transform3D
	dead    bool
	enemies map[EntityID]*physics.Transform3D
}

func newStubWorld(player physics.Vec3) *stubWorld {
	return &stubWorld{
		player:  physics.NewTransform(player),
		enemies: make(map[EntityID]*physics.Transform3D),
	}
}

func (w *stubWorld) addEnemy(id EntityID, pos physics.Vec3) *physics.Transform3D {
	w.mu.Lock()
	defer w.mu.Unlock()
	tr := physics.NewTransform(pos)
	w.enemies[id] = tr
	return tr
}

func (w *stubWorld) GetPlayerTransform() (physics.Transform, bool) {
	if w.player == nil {
		return nil, false
	}
	return w.player, true
}

func (w *stubWorld) GetEnemyTransform(id EntityID) (physics.Transform, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	tr, ok := w.enemies[id]
	if !ok {
		return nil, false
	}
	return tr, true
}

func (w *stubWorld) GetPlayerPosition() (physics.Vec3, bool) {
	if w.player == nil {
		return physics.Vec3{}, false
	}
	return w.player.Position(), true
}

func (w *stubWorld) GetEnemyPosition(id EntityID) (physics.Vec3, bool) {
	tr, ok := w.GetEnemyTransform(id)
	if !ok {
		return physics.Vec3{}, false
	}
	return tr.Position(), true
}

func (w *stubWorld) GetPlayer() (EntityID, bool) {
	return testPlayer, w.player != nil
}

func (w *stubWorld) GetPlayerIsDie() bool { return w.dead }

func tickCtx(p DataProvider, dt float64) *TickContext {
	return &TickContext{Provider: p, Clock: FixedStep(dt), Events: NewEventQueue()}
}

// counter is an action that records how often it ran and returns a fixed result.
func counter(name string, result NodeState, calls *int) *FuncAction {
	return NewAction(name, func(*TickContext, EntityID) NodeState {
		*calls++
		return result
	})
}

func evalN(n Node, tc *TickContext, id EntityID, times int) []NodeState {
	out := make([]NodeState, 0, times)
	for range times {
		out = append(out, n.Evaluate(tc, id))
	}
	return out
}
