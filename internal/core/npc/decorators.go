package npc

// decorator holds the single wrapped child.
type decorator struct {
	*BaseNode
	child Node
}

func newDecorator(name, nodeType string) decorator {
	return decorator{BaseNode: NewBaseNode(name, nodeType)}
}

func (d *decorator) SetChild(child Node) { d.child = child }
func (d *decorator) Child() Node         { return d.child }

func (d *decorator) Children() []Node {
	if d.child == nil {
		return nil
	}
	return []Node{d.child}
}

func (d *decorator) Reset() {
	d.BaseNode.Reset()
	if d.child != nil {
		d.child.Reset()
	}
}

// A pass-through decorator is only as stateful as what it wraps.
func (d *decorator) HasInstanceState() bool {
	return d.child != nil && d.child.HasInstanceState()
}

// Inverter swaps Success and Failure of its child. Running passes through.
type Inverter struct {
	decorator
}

func NewInverter(name string, child Node) *Inverter {
	in := &Inverter{decorator: newDecorator(name, TypeInverter)}
	in.child = child
	return in
}

func (in *Inverter) Evaluate(tc *TickContext, id EntityID) NodeState {
	if in.child == nil {
		return in.SetState(StateFailure)
	}

	switch in.child.Evaluate(tc, id) {
	case StateSuccess:
		return in.SetState(StateFailure)
	case StateRunning:
		return in.SetState(StateRunning)
	default:
		return in.SetState(StateSuccess)
	}
}

func (in *Inverter) Clone() Node {
	if !in.HasInstanceState() {
		return in
	}
	return NewInverter(in.name, in.child.Clone())
}

// Succeeder reports Success whenever its child finishes, whatever the outcome.
type Succeeder struct {
	decorator
}

func NewSucceeder(name string, child Node) *Succeeder {
	s := &Succeeder{decorator: newDecorator(name, TypeSucceeder)}
	s.child = child
	return s
}

func (s *Succeeder) Evaluate(tc *TickContext, id EntityID) NodeState {
	if s.child == nil {
		return s.SetState(StateSuccess)
	}
	if s.child.Evaluate(tc, id) == StateRunning {
		return s.SetState(StateRunning)
	}
	return s.SetState(StateSuccess)
}

func (s *Succeeder) Clone() Node {
	if !s.HasInstanceState() {
		return s
	}
	return NewSucceeder(s.name, s.child.Clone())
}

// Repeater runs its child to completion count times, resetting the child
// between runs. A count below 1 repeats forever. It reports Running until the
// last run finished.
type Repeater struct {
	decorator
	count int
	runs  int
}

func NewRepeater(name string, count int, child Node) *Repeater {
	r := &Repeater{decorator: newDecorator(name, TypeRepeater), count: count}
	r.child = child
	return r
}

func (r *Repeater) Evaluate(tc *TickContext, id EntityID) NodeState {
	if r.child == nil {
		return r.SetState(StateFailure)
	}

	if r.child.Evaluate(tc, id) == StateRunning {
		return r.SetState(StateRunning)
	}

	r.runs++
	r.child.Reset()
	if r.count > 0 && r.runs >= r.count {
		r.Reset()
		return r.SetState(StateSuccess)
	}
	return r.SetState(StateRunning)
}

func (r *Repeater) Reset() {
	r.decorator.Reset()
	r.runs = 0
}

// The run counter is per-instance progress.
func (r *Repeater) HasInstanceState() bool { return true }

func (r *Repeater) Clone() Node {
	var child Node
	if r.child != nil {
		child = r.child.Clone()
	}
	return NewRepeater(r.name, r.count, child)
}
