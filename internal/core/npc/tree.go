package npc

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Template is an immutable, validated tree definition. Its node graph is never
// evaluated directly; every entity gets its own Instance.
type Template struct {
	name        string
	root        Node
	fingerprint uint64
	config      *TreeConfig
}

// NewTemplate wraps an already built root, e.g. a tree assembled in code.
func NewTemplate(name string, root Node) *Template {
	return newTemplate(name, root, nil)
}

func newTemplate(name string, root Node, config *TreeConfig) *Template {
	return &Template{
		name:        name,
		root:        root,
		fingerprint: fingerprint(root, config),
		config:      config,
	}
}

func (t *Template) Name() string        { return t.name }
func (t *Template) Root() Node          { return t.root }
func (t *Template) Fingerprint() uint64 { return t.fingerprint }

// Config returns a copy of the source config, or nil for code-built templates.
func (t *Template) Config() *TreeConfig {
	if t.config == nil {
		return nil
	}
	return t.config.Clone()
}

// fingerprint hashes the canonical JSON of the config. Code-built templates
// hash their node names and types in depth-first order instead.
func fingerprint(root Node, config *TreeConfig) uint64 {
	if config != nil {
		if data, err := json.Marshal(config); err == nil {
			return xxhash.Sum64(data)
		}
	}

	d := xxhash.New()
	var walk func(n Node)
	walk = func(n Node) {
		if n == nil {
			_, _ = d.WriteString("nil;")
			return
		}
		_, _ = d.WriteString(n.GetType())
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(n.GetName())
		_, _ = d.WriteString("(")
		if p, ok := n.(Parent); ok {
			for _, child := range p.Children() {
				walk(child)
			}
		}
		_, _ = d.WriteString(");")
	}
	walk(root)
	return d.Sum64()
}

// CloneTree deep-copies root and verifies that every node the copy shares
// with the original is stateless.
func CloneTree(root Node) (Node, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root", ErrInvalidConfig)
	}
	clone := root.Clone()
	if err := verifyClone(root, clone, root.GetName()); err != nil {
		return nil, err
	}
	return clone, nil
}

func verifyClone(orig, clone Node, path string) error {
	if orig == nil || clone == nil {
		return nil
	}
	if orig == clone && orig.HasInstanceState() {
		return fmt.Errorf("%w: %s (%s)", ErrSharedInstanceState, path, orig.GetType())
	}

	op, ok := orig.(Parent)
	if !ok {
		return nil
	}
	cp, ok := clone.(Parent)
	if !ok {
		return fmt.Errorf("%w: %s lost its children when cloned", ErrSharedInstanceState, path)
	}
	oc, cc := op.Children(), cp.Children()
	if len(oc) != len(cc) {
		return fmt.Errorf("%w: %s cloned with %d children, want %d", ErrSharedInstanceState, path, len(cc), len(oc))
	}
	for i := range oc {
		if err := verifyClone(oc[i], cc[i], path+"/"+oc[i].GetName()); err != nil {
			return err
		}
	}
	return nil
}

// Instance is one entity's private copy of a template.
type Instance struct {
	id          string
	template    string
	fingerprint uint64
	root        Node

	lastState atomic.Int32
	discarded atomic.Bool
}

// InstantiateTree creates an independent instance of t.
func InstantiateTree(t *Template) (*Instance, error) {
	if t == nil {
		return nil, ErrTemplateNotFound
	}
	root, err := CloneTree(t.root)
	if err != nil {
		return nil, fmt.Errorf("instantiate %q: %w", t.name, err)
	}
	root.Reset()

	inst := &Instance{
		id:          uuid.NewString(),
		template:    t.name,
		fingerprint: t.fingerprint,
		root:        root,
	}
	inst.lastState.Store(int32(StateInvalid))
	return inst, nil
}

func (i *Instance) ID() string           { return i.id }
func (i *Instance) Template() string     { return i.template }
func (i *Instance) Fingerprint() uint64  { return i.fingerprint }
func (i *Instance) Root() Node           { return i.root }
func (i *Instance) LastState() NodeState { return NodeState(i.lastState.Load()) }
func (i *Instance) Discarded() bool      { return i.discarded.Load() }

// Evaluate ticks the instance root once for entity id. Discarded instances
// fail without touching their nodes.
func Evaluate(inst *Instance, tc *TickContext, id EntityID) NodeState {
	if inst == nil || inst.discarded.Load() {
		return StateFailure
	}
	state := inst.root.Evaluate(tc, id)
	inst.lastState.Store(int32(state))
	return state
}

// DiscardTree retires the instance. It is safe to call more than once.
func DiscardTree(inst *Instance) {
	if inst == nil {
		return
	}
	if inst.discarded.CompareAndSwap(false, true) {
		inst.root.Reset()
	}
}

// TemplateRegistry is a thread-safe name to template store. Replacing a
// template does not affect instances created from the previous one.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{templates: make(map[string]*Template)}
}

// Register stores t under its name and reports whether it replaced another template.
func (r *TemplateRegistry) Register(t *Template) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced := r.templates[t.name]
	r.templates[t.name] = t
	return replaced
}

func (r *TemplateRegistry) Get(name string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	return t, nil
}

func (r *TemplateRegistry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.templates[name]
	delete(r.templates, name)
	return ok
}

// Names returns the registered template names in sorted order.
func (r *TemplateRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *TemplateRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}
