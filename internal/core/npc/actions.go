package npc

import (
	"github.com/zeusync/enemyai/internal/core/systems/physics"
)

// ChasePlayer moves the entity toward the player each tick and turns it to
// face the direction of travel.
//
// Its parameters are fixed at construction; one node is shared by every
// instance of a template.
//
// With StopDistance zero the chase never finishes on its own and reports
// Running for as long as both transforms exist; an enclosing condition is
// expected to end the behaviour. A positive StopDistance makes the node
// succeed, without moving, once the player is that close.
type ChasePlayer struct {
	*ActionBase
	moveSpeed     float64
	rotationSpeed float64
	stopDistance  float64
}

func NewChasePlayer(name string, moveSpeed, rotationSpeed, stopDistance float64) *ChasePlayer {
	return &ChasePlayer{
		ActionBase:    NewActionBase(name, TypeChasePlayer),
		moveSpeed:     moveSpeed,
		rotationSpeed: rotationSpeed,
		stopDistance:  stopDistance,
	}
}

func (c *ChasePlayer) MoveSpeed() float64     { return c.moveSpeed }
func (c *ChasePlayer) RotationSpeed() float64 { return c.rotationSpeed }
func (c *ChasePlayer) StopDistance() float64  { return c.stopDistance }

func (c *ChasePlayer) Evaluate(tc *TickContext, id EntityID) NodeState {
	p := tc.provider()
	if p == nil {
		return c.SetState(StateFailure)
	}
	player, ok := p.GetPlayerTransform()
	if !ok || player == nil {
		return c.SetState(StateFailure)
	}
	owner, ok := p.GetEnemyTransform(id)
	if !ok || owner == nil {
		return c.SetState(StateFailure)
	}

	from := owner.Position()
	offset := player.Position().Sub(from)
	dist := offset.Length()
	if c.stopDistance > 0 && dist <= c.stopDistance {
		return c.SetState(StateSuccess)
	}

	dir := offset.Normalized()
	if dir.IsZero() {
		return c.SetState(StateRunning)
	}

	dt := tc.DeltaTime()
	step := c.moveSpeed * dt
	if step > dist {
		step = dist
	}
	owner.SetPosition(from.Add(dir.Scale(step)))
	owner.SetYaw(physics.LerpAngle(owner.Yaw(), physics.YawOf(dir), c.rotationSpeed*dt))

	return c.SetState(StateRunning)
}

func (c *ChasePlayer) Clone() Node { return c }

// DamageToPlayer queues one DamageRequest from the entity to the player and
// succeeds. Delivery happens after the tick; the node never waits for it.
// Without a player or an event queue it fails and queues nothing.
type DamageToPlayer struct {
	*ActionBase
	damageType string
}

func NewDamageToPlayer(name, damageType string) *DamageToPlayer {
	return &DamageToPlayer{ActionBase: NewActionBase(name, TypeDamageToPlayer), damageType: damageType}
}

func (d *DamageToPlayer) DamageType() string { return d.damageType }

func (d *DamageToPlayer) Evaluate(tc *TickContext, id EntityID) NodeState {
	p := tc.provider()
	if p == nil {
		return d.SetState(StateFailure)
	}
	target, ok := p.GetPlayer()
	if !ok {
		return d.SetState(StateFailure)
	}

	if tc.Events == nil {
		tc.logger().Debug("damage request dropped, no event queue", logNode(d), logEntity(id))
		return d.SetState(StateFailure)
	}
	tc.Events.EnqueueDamage(DamageRequest{AttackerID: id, TargetID: target, DamageType: d.damageType})
	return d.SetState(StateSuccess)
}

func (d *DamageToPlayer) Clone() Node { return d }

// Delay reports Running until Target seconds of tick time have accumulated,
// then Success until it is reset.
type Delay struct {
	*ActionBase
	target  float64
	elapsed float64
}

func NewDelay(name string, seconds float64) *Delay {
	return &Delay{ActionBase: NewActionBase(name, TypeDelay), target: seconds}
}

func (d *Delay) Target() float64  { return d.target }
func (d *Delay) Elapsed() float64 { return d.elapsed }

func (d *Delay) Evaluate(tc *TickContext, _ EntityID) NodeState {
	if d.elapsed < d.target {
		d.elapsed += tc.DeltaTime()
	}
	if d.elapsed >= d.target {
		return d.SetState(StateSuccess)
	}
	return d.SetState(StateRunning)
}

func (d *Delay) Reset() {
	d.ActionBase.Reset()
	d.elapsed = 0
}

// The elapsed timer is per-instance progress.
func (d *Delay) HasInstanceState() bool { return true }

// Clone returns a fresh timer carrying only the configured target.
func (d *Delay) Clone() Node {
	return NewDelay(d.name, d.target)
}
