package npc

import "sync/atomic"

// BaseNode provides name, type and last-state bookkeeping for all nodes.
// The state is stored atomically because stateless nodes are shared between
// tree instances that may be ticked from different goroutines.
type BaseNode struct {
	name     string
	nodeType string
	state    atomic.Int32
}

// NewBaseNode creates a base node in StateInvalid.
func NewBaseNode(name, nodeType string) *BaseNode {
	bn := &BaseNode{name: name, nodeType: nodeType}
	bn.state.Store(int32(StateInvalid))
	return bn
}

func (bn *BaseNode) GetName() string { return bn.name }
func (bn *BaseNode) GetType() string { return bn.nodeType }

// State returns the result of the most recent evaluation by any instance
// sharing the node.
func (bn *BaseNode) State() NodeState {
	return NodeState(bn.state.Load())
}

// SetState records s and returns it, so Evaluate can end with `return n.SetState(s)`.
func (bn *BaseNode) SetState(s NodeState) NodeState {
	bn.state.Store(int32(s))
	return s
}

// Reset forgets the last state.
func (bn *BaseNode) Reset() {
	bn.state.Store(int32(StateInvalid))
}

// CheckFunc is the predicate behind a condition node.
type CheckFunc func(tc *TickContext, id EntityID) bool

// ConditionBase maps a predicate to Success or Failure. Conditions resolve
// within a single tick and hold no per-entity data, so they are shared
// between instances.
type ConditionBase struct {
	*BaseNode
	check CheckFunc
}

// NewConditionBase creates a condition node around check.
func NewConditionBase(name, nodeType string, check CheckFunc) *ConditionBase {
	return &ConditionBase{BaseNode: NewBaseNode(name, nodeType), check: check}
}

// NewCondition wraps an arbitrary predicate. The predicate must not keep
// per-entity state because the node is shared by every instance.
func NewCondition(name string, check CheckFunc) *ConditionBase {
	return NewConditionBase(name, TypeCondition, check)
}

// CheckCondition runs the predicate. A missing predicate is false.
func (c *ConditionBase) CheckCondition(tc *TickContext, id EntityID) bool {
	if c.check == nil {
		return false
	}
	return c.check(tc, id)
}

func (c *ConditionBase) Evaluate(tc *TickContext, id EntityID) NodeState {
	if c.CheckCondition(tc, id) {
		return c.SetState(StateSuccess)
	}
	return c.SetState(StateFailure)
}

func (c *ConditionBase) HasInstanceState() bool { return false }

func (c *ConditionBase) Clone() Node { return c }

// ActionBase is embedded by action nodes. Actions are stateless unless they
// override HasInstanceState.
type ActionBase struct {
	*BaseNode
}

func NewActionBase(name, nodeType string) *ActionBase {
	return &ActionBase{BaseNode: NewBaseNode(name, nodeType)}
}

func (a *ActionBase) HasInstanceState() bool { return false }

// ActionFunc is the body of a FuncAction.
type ActionFunc func(tc *TickContext, id EntityID) NodeState

// FuncAction wraps a function as an action node. Like NewCondition, the
// function is shared by every instance and must not keep per-entity state.
type FuncAction struct {
	*ActionBase
	fn ActionFunc
}

func NewAction(name string, fn ActionFunc) *FuncAction {
	return &FuncAction{ActionBase: NewActionBase(name, TypeAction), fn: fn}
}

func (a *FuncAction) Evaluate(tc *TickContext, id EntityID) NodeState {
	if a.fn == nil {
		return a.SetState(StateFailure)
	}
	return a.SetState(a.fn(tc, id))
}

func (a *FuncAction) Clone() Node { return a }
