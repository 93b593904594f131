package physics

// Minimal spatial abstractions shared by the AI engine and world providers.
// Rotation is kept to a heading around the vertical (Y) axis; nothing in the
// engine needs pitch or roll.

// Transform is a mutable placement in the world.
type Transform interface {
	Position() Vec3
	SetPosition(p Vec3)

	// Yaw is the heading in radians around +Y, zero facing +Z.
	Yaw() float64
	SetYaw(yaw float64)
}
