package npc

// composite holds the child list and the resume index shared by Sequence and Selector.
type composite struct {
	*BaseNode
	children []Node
	current  int
}

func newComposite(name, nodeType string) composite {
	return composite{BaseNode: NewBaseNode(name, nodeType), children: make([]Node, 0)}
}

// AddChild appends a child node.
func (c *composite) AddChild(child Node) {
	c.children = append(c.children, child)
}

// Children returns the child list. Callers must not modify it.
func (c *composite) Children() []Node {
	return c.children
}

// RemoveChild removes the first occurrence of child.
func (c *composite) RemoveChild(child Node) bool {
	for i, ch := range c.children {
		if ch == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			if c.current > i {
				c.current--
			}
			return true
		}
	}
	return false
}

// Reset rewinds to the first child and resets the subtree.
func (c *composite) Reset() {
	c.BaseNode.Reset()
	c.current = 0
	for _, child := range c.children {
		child.Reset()
	}
}

// The resume index is per-instance progress.
func (c *composite) HasInstanceState() bool { return true }

// Sequence evaluates children in order. It fails on the first failing child,
// resumes a running child on the next tick, and succeeds once every child has
// succeeded in the same pass.
type Sequence struct {
	composite
}

// NewSequence creates a sequence with the given children.
func NewSequence(name string, children ...Node) *Sequence {
	s := &Sequence{composite: newComposite(name, TypeSequence)}
	for _, ch := range children {
		s.AddChild(ch)
	}
	return s
}

func (s *Sequence) Evaluate(tc *TickContext, id EntityID) NodeState {
	if len(s.children) == 0 {
		return s.SetState(StateSuccess)
	}

	for s.current < len(s.children) {
		switch s.children[s.current].Evaluate(tc, id) {
		case StateRunning:
			return s.SetState(StateRunning)
		case StateSuccess:
			s.current++
		default:
			s.Reset()
			return s.SetState(StateFailure)
		}
	}

	s.Reset()
	return s.SetState(StateSuccess)
}

// Clone deep-copies the children. The resume index starts at zero.
func (s *Sequence) Clone() Node {
	clone := NewSequence(s.name)
	for _, child := range s.children {
		clone.AddChild(child.Clone())
	}
	return clone
}

// Selector evaluates children in order until one succeeds. A running child is
// resumed on the next tick; the selector fails only when every child failed.
type Selector struct {
	composite
}

// NewSelector creates a selector with the given children.
func NewSelector(name string, children ...Node) *Selector {
	s := &Selector{composite: newComposite(name, TypeSelector)}
	for _, ch := range children {
		s.AddChild(ch)
	}
	return s
}

func (s *Selector) Evaluate(tc *TickContext, id EntityID) NodeState {
	if len(s.children) == 0 {
		return s.SetState(StateFailure)
	}

	for s.current < len(s.children) {
		switch s.children[s.current].Evaluate(tc, id) {
		case StateRunning:
			return s.SetState(StateRunning)
		case StateSuccess:
			s.Reset()
			return s.SetState(StateSuccess)
		default:
			s.current++
		}
	}

	s.Reset()
	return s.SetState(StateFailure)
}

func (s *Selector) Clone() Node {
	clone := NewSelector(s.name)
	for _, child := range s.children {
		clone.AddChild(child.Clone())
	}
	return clone
}

// Parallel ticks every unfinished child on each evaluation. It succeeds once
// successThreshold children succeeded and fails once failureThreshold children
// failed; thresholds below 1 mean "all children".
type Parallel struct {
	composite
	successThreshold int
	failureThreshold int
	results          []NodeState
}

// NewParallel creates a parallel node.
func NewParallel(name string, successThreshold, failureThreshold int, children ...Node) *Parallel {
	p := &Parallel{
		composite:        newComposite(name, TypeParallel),
		successThreshold: successThreshold,
		failureThreshold: failureThreshold,
	}
	for _, ch := range children {
		p.AddChild(ch)
	}
	return p
}

func (p *Parallel) AddChild(child Node) {
	p.composite.AddChild(child)
	p.results = append(p.results, StateInvalid)
}

func (p *Parallel) RemoveChild(child Node) bool {
	for i, ch := range p.children {
		if ch == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			p.results = append(p.results[:i], p.results[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Parallel) threshold(n int) int {
	if n < 1 || n > len(p.children) {
		return len(p.children)
	}
	return n
}

func (p *Parallel) Evaluate(tc *TickContext, id EntityID) NodeState {
	if len(p.children) == 0 {
		return p.SetState(StateSuccess)
	}

	succeeded, failed := 0, 0
	for i, child := range p.children {
		if p.results[i] == StateRunning || p.results[i] == StateInvalid {
			p.results[i] = child.Evaluate(tc, id)
		}
		switch p.results[i] {
		case StateSuccess:
			succeeded++
		case StateFailure:
			failed++
		}
	}

	if succeeded >= p.threshold(p.successThreshold) {
		p.Reset()
		return p.SetState(StateSuccess)
	}
	if failed >= p.threshold(p.failureThreshold) {
		p.Reset()
		return p.SetState(StateFailure)
	}
	if succeeded+failed == len(p.children) {
		// Everything finished without reaching either threshold.
		p.Reset()
		return p.SetState(StateFailure)
	}
	return p.SetState(StateRunning)
}

func (p *Parallel) Reset() {
	p.composite.Reset()
	for i := range p.results {
		p.results[i] = StateInvalid
	}
}

func (p *Parallel) Clone() Node {
	clone := NewParallel(p.name, p.successThreshold, p.failureThreshold)
	for _, child := range p.children {
		clone.AddChild(child.Clone())
	}
	return clone
}
