package npc

import (
	"context"

	"github.com/zeusync/enemyai/internal/core/observability/log"
	"github.com/zeusync/enemyai/internal/core/systems/physics"
)

// NodeState is the result of a single node evaluation.
type NodeState int32

const (
	StateSuccess NodeState = iota
	StateFailure
	StateRunning
	// StateInvalid marks a node that has not been evaluated since its last reset.
	StateInvalid
)

func (s NodeState) String() string {
	switch s {
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	case StateRunning:
		return "running"
	default:
		return "invalid"
	}
}

// EntityID identifies a world entity (an enemy or the player).
type EntityID int

// DataProvider is the read path into world state. Every lookup reports
// absence with ok == false; nodes treat absence as failure.
type DataProvider interface {
	GetPlayerTransform() (physics.Transform, bool)
	GetEnemyTransform(id EntityID) (physics.Transform, bool)
	GetPlayerPosition() (physics.Vec3, bool)
	GetEnemyPosition(id EntityID) (physics.Vec3, bool)
	GetPlayer() (EntityID, bool)
	GetPlayerIsDie() bool
}

// Clock is the time source timer-bearing nodes read during a tick.
type Clock interface {
	// DeltaTime is the length of the current tick in seconds.
	DeltaTime() float64
}

// FixedStep is a Clock with a constant tick length in seconds.
type FixedStep float64

func (f FixedStep) DeltaTime() float64 { return float64(f) }

// TickContext carries everything a node may touch while it is evaluated.
// It is shared by all instances ticked on the same goroutine.
type TickContext struct {
	Context  context.Context
	Provider DataProvider
	Clock    Clock
	Events   *EventQueue
	Logger   log.Log
	Tick     uint64
}

var nopLogger log.Log = log.NewNop()

// DeltaTime returns the tick length, or zero when no clock is attached.
func (tc *TickContext) DeltaTime() float64 {
	if tc == nil || tc.Clock == nil {
		return 0
	}
	return tc.Clock.DeltaTime()
}

func (tc *TickContext) provider() DataProvider {
	if tc == nil {
		return nil
	}
	return tc.Provider
}

func (tc *TickContext) logger() log.Log {
	if tc == nil || tc.Logger == nil {
		return nopLogger
	}
	return tc.Logger
}

// Node is a unit of behaviour-tree structure.
type Node interface {
	// Evaluate runs one tick of the node for the given entity. It never blocks
	// and never panics on missing world data.
	Evaluate(tc *TickContext, id EntityID) NodeState

	// Reset restores the per-run progress of this node and its subtree.
	Reset()

	// Clone returns an independent copy for a new tree instance. Nodes whose
	// HasInstanceState is false may return themselves.
	Clone() Node

	// HasInstanceState reports whether the node (or its subtree) keeps
	// per-entity mutable progress.
	HasInstanceState() bool

	// State is the result of the most recent Evaluate. On a node shared
	// between instances it is the last result of any of them and is for
	// inspection only; per-instance results come from Instance.LastState.
	State() NodeState

	GetName() string
	GetType() string
}

// Parent is implemented by nodes that own children.
type Parent interface {
	Children() []Node
}

// CompositeNode is a node with an ordered list of children.
type CompositeNode interface {
	Node
	Parent
	AddChild(child Node)
}

// DecoratorNode wraps exactly one child.
type DecoratorNode interface {
	Node
	Parent
	SetChild(child Node)
	Child() Node
}
