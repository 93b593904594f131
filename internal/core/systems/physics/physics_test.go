package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3Distance(t *testing.T) {
	assert.InDelta(t, 1.0, V3(0, 0, 0).Distance(V3(1, 0, 0)), 1e-9)
	assert.InDelta(t, 5.0, V3(0, 0, 0).Distance(V3(3, 0, 4)), 1e-9)
	assert.Equal(t, 0.0, V3(2, 2, 2).Distance(V3(2, 2, 2)))
}

func TestVec3Normalized(t *testing.T) {
	n := V3(3, 0, 4).Normalized()
	assert.InDelta(t, 1.0, n.Length(), 1e-9)
	assert.InDelta(t, 0.6, n.X, 1e-9)
	assert.InDelta(t, 0.8, n.Z, 1e-9)

	assert.True(t, Vec3{}.Normalized().IsZero())
}

func TestYawOf(t *testing.T) {
	assert.InDelta(t, 0.0, YawOf(V3(0, 0, 1)), 1e-9)
	assert.InDelta(t, math.Pi/2, YawOf(V3(1, 0, 0)), 1e-9)
	assert.InDelta(t, -math.Pi/2, YawOf(V3(-1, 0, 0)), 1e-9)
}

func TestNormalizeAngle(t *testing.T) {
	assert.InDelta(t, 0.0, NormalizeAngle(2*math.Pi), 1e-9)
	assert.InDelta(t, math.Pi, NormalizeAngle(-math.Pi), 1e-9)
	assert.InDelta(t, -math.Pi/2, NormalizeAngle(3*math.Pi/2), 1e-9)
}

func TestLerpAngle(t *testing.T) {
	assert.InDelta(t, 0.5, LerpAngle(0, 1, 0.5), 1e-9)
	assert.InDelta(t, 1.0, LerpAngle(0, 1, 7), 1e-9, "t is clamped")
	assert.InDelta(t, 0.0, LerpAngle(0, 1, -1), 1e-9)

	// Shortest arc across the ±π seam.
	got := LerpAngle(math.Pi-0.1, -math.Pi+0.1, 0.5)
	assert.InDelta(t, math.Pi, math.Abs(got), 1e-9)
}

func TestTransform3D(t *testing.T) {
	tr := NewTransform(V3(1, 2, 3))
	assert.Equal(t, V3(1, 2, 3), tr.Position())

	tr.SetPosition(V3(4, 5, 6))
	tr.SetYaw(3 * math.Pi)
	assert.Equal(t, V3(4, 5, 6), tr.Position())
	assert.InDelta(t, math.Pi, math.Abs(tr.Yaw()), 1e-9)
}
