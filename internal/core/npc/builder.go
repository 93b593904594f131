package npc

import (
	"fmt"
	"sort"
	"sync"
)

// Built-in node type names as they appear in template files.
const (
	TypeSequence        = "Sequence"
	TypeSelector        = "Selector"
	TypeParallel        = "Parallel"
	TypeInverter        = "Inverter"
	TypeSucceeder       = "Succeeder"
	TypeRepeater        = "Repeater"
	TypeIsPlayerInRange = "IsPlayerInRange"
	TypeIsPlayerDead    = "IsPlayerDead"
	TypeExpression      = "Expression"
	TypeChasePlayer     = "ChasePlayer"
	TypeDamageToPlayer  = "DamageToPlayer"
	TypeDelay           = "Delay"
	TypeCondition       = "Condition"
	TypeAction          = "Action"
)

// Arity says how many children a node type accepts.
type Arity int

const (
	// ArityLeaf nodes take no children.
	ArityLeaf Arity = iota
	// ArityDecorator nodes take exactly one Child.
	ArityDecorator
	// ArityComposite nodes take any number of Children.
	ArityComposite
)

// NodeFactory creates nodes of one type from configuration. CreateNode must
// reject invalid parameters so that misconfiguration surfaces at load time.
type NodeFactory interface {
	CreateNode(config *NodeConfig) (Node, error)
	GetNodeType() string
	Arity() Arity
}

type nodeFactory struct {
	nodeType string
	arity    Arity
	create   func(config *NodeConfig) (Node, error)
}

// NewNodeFactory adapts a constructor function to NodeFactory.
func NewNodeFactory(nodeType string, arity Arity, create func(config *NodeConfig) (Node, error)) NodeFactory {
	return &nodeFactory{nodeType: nodeType, arity: arity, create: create}
}

func (f *nodeFactory) CreateNode(config *NodeConfig) (Node, error) { return f.create(config) }
func (f *nodeFactory) GetNodeType() string                         { return f.nodeType }
func (f *nodeFactory) Arity() Arity                                { return f.arity }

// Builder turns TreeConfigs into Templates using a registry of node factories.
type Builder struct {
	mu            sync.RWMutex
	nodeFactories map[string]NodeFactory
}

// NewBuilder creates a builder with every built-in node type registered.
func NewBuilder() *Builder {
	builder := &Builder{nodeFactories: make(map[string]NodeFactory)}
	builder.registerDefaultFactories()
	return builder
}

func (b *Builder) registerDefaultFactories() {
	for _, f := range []NodeFactory{
		NewNodeFactory(TypeSequence, ArityComposite, createSequence),
		NewNodeFactory(TypeSelector, ArityComposite, createSelector),
		NewNodeFactory(TypeParallel, ArityComposite, createParallel),
		NewNodeFactory(TypeInverter, ArityDecorator, createInverter),
		NewNodeFactory(TypeSucceeder, ArityDecorator, createSucceeder),
		NewNodeFactory(TypeRepeater, ArityDecorator, createRepeater),
		NewNodeFactory(TypeIsPlayerInRange, ArityLeaf, createIsPlayerInRange),
		NewNodeFactory(TypeIsPlayerDead, ArityLeaf, createIsPlayerDead),
		NewNodeFactory(TypeExpression, ArityLeaf, createExpression),
		NewNodeFactory(TypeChasePlayer, ArityLeaf, createChasePlayer),
		NewNodeFactory(TypeDamageToPlayer, ArityLeaf, createDamageToPlayer),
		NewNodeFactory(TypeDelay, ArityLeaf, createDelay),
	} {
		b.nodeFactories[f.GetNodeType()] = f
	}
}

// RegisterNodeType adds or replaces a node factory.
func (b *Builder) RegisterNodeType(factory NodeFactory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodeFactories[factory.GetNodeType()] = factory
}

// RegisteredTypes returns the known node types in sorted order.
func (b *Builder) RegisteredTypes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	types := make([]string, 0, len(b.nodeFactories))
	for nodeType := range b.nodeFactories {
		types = append(types, nodeType)
	}
	sort.Strings(types)
	return types
}

// BuildTemplate validates config and builds the template's node graph.
func (b *Builder) BuildTemplate(config *TreeConfig) (*Template, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	root, err := b.BuildNode(config.Root)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", config.Name, err)
	}
	return newTemplate(config.Name, root, config), nil
}

// BuildNode recursively builds a node and its subtree.
func (b *Builder) BuildNode(config *NodeConfig) (Node, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: node config is nil", ErrInvalidConfig)
	}

	if config.Disabled {
		return NewAction(config.Name, func(*TickContext, EntityID) NodeState {
			return StateSuccess
		}), nil
	}

	b.mu.RLock()
	factory, exists := b.nodeFactories[config.Type]
	b.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %q (node %q)", ErrUnknownNodeType, config.Type, config.Name)
	}

	if err := checkArity(config, factory.Arity()); err != nil {
		return nil, err
	}

	node, err := factory.CreateNode(config)
	if err != nil {
		return nil, err
	}

	switch factory.Arity() {
	case ArityComposite:
		composite, ok := node.(CompositeNode)
		if !ok {
			return nil, fmt.Errorf("%w: %s factory did not return a composite", ErrInvalidConfig, config.Type)
		}
		for _, childConfig := range config.Children {
			child, err := b.BuildNode(childConfig)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", config.Name, err)
			}
			composite.AddChild(child)
		}
	case ArityDecorator:
		decorator, ok := node.(DecoratorNode)
		if !ok {
			return nil, fmt.Errorf("%w: %s factory did not return a decorator", ErrInvalidConfig, config.Type)
		}
		child, err := b.BuildNode(config.Child)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.Name, err)
		}
		decorator.SetChild(child)
	}

	return node, nil
}

func checkArity(config *NodeConfig, arity Arity) error {
	switch arity {
	case ArityLeaf:
		if len(config.Children) > 0 || config.Child != nil {
			return fmt.Errorf("%w: node %q (%s) cannot have children", ErrInvalidConfig, config.Name, config.Type)
		}
	case ArityDecorator:
		if config.Child == nil || len(config.Children) > 0 {
			return fmt.Errorf("%w: node %q (%s) needs exactly one child", ErrInvalidConfig, config.Name, config.Type)
		}
	case ArityComposite:
		if config.Child != nil {
			return fmt.Errorf("%w: node %q (%s) takes children, not child", ErrInvalidConfig, config.Name, config.Type)
		}
	}
	return nil
}

func createSequence(config *NodeConfig) (Node, error) {
	return NewSequence(config.Name), nil
}

func createSelector(config *NodeConfig) (Node, error) {
	return NewSelector(config.Name), nil
}

func createParallel(config *NodeConfig) (Node, error) {
	success, err := optionalInt(config, "success_threshold")
	if err != nil {
		return nil, err
	}
	failure, err := optionalInt(config, "failure_threshold")
	if err != nil {
		return nil, err
	}
	if success < 0 || failure < 0 {
		return nil, config.paramError("success_threshold/failure_threshold", "must not be negative")
	}
	return NewParallel(config.Name, success, failure), nil
}

func createInverter(config *NodeConfig) (Node, error) {
	return NewInverter(config.Name, nil), nil
}

func createSucceeder(config *NodeConfig) (Node, error) {
	return NewSucceeder(config.Name, nil), nil
}

func createRepeater(config *NodeConfig) (Node, error) {
	count, err := optionalInt(config, "count")
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, config.paramError("count", "must not be negative")
	}
	return NewRepeater(config.Name, count, nil), nil
}

func createIsPlayerInRange(config *NodeConfig) (Node, error) {
	r, ok := config.GetFloatParameter("range")
	if !ok {
		return nil, config.paramError("range", "is required and must be a number")
	}
	if r <= 0 {
		return nil, config.paramError("range", "must be positive")
	}
	return NewIsPlayerInRange(config.Name, r), nil
}

func createIsPlayerDead(config *NodeConfig) (Node, error) {
	return NewIsPlayerDead(config.Name), nil
}

func createExpression(config *NodeConfig) (Node, error) {
	src, ok := config.GetStringParameter("expression")
	if !ok || src == "" {
		return nil, config.paramError("expression", "is required")
	}
	return NewExpression(config.Name, src)
}

func createChasePlayer(config *NodeConfig) (Node, error) {
	move, err := config.float("move_speed", 3)
	if err != nil {
		return nil, err
	}
	rotation, err := config.float("rotation_speed", 5)
	if err != nil {
		return nil, err
	}
	stop, err := config.float("stop_distance", 0)
	if err != nil {
		return nil, err
	}
	if move < 0 || rotation < 0 || stop < 0 {
		return nil, config.paramError("move_speed/rotation_speed/stop_distance", "must not be negative")
	}
	return NewChasePlayer(config.Name, move, rotation, stop), nil
}

func createDamageToPlayer(config *NodeConfig) (Node, error) {
	damageType, ok := config.GetStringParameter("damage_type")
	if !ok || damageType == "" {
		return nil, config.paramError("damage_type", "is required")
	}
	return NewDamageToPlayer(config.Name, damageType), nil
}

func createDelay(config *NodeConfig) (Node, error) {
	if _, exists := config.GetParameter("duration"); !exists {
		return nil, config.paramError("duration", "is required")
	}
	seconds, ok := config.GetSecondsParameter("duration")
	if !ok {
		return nil, config.paramError("duration", "must be seconds or a duration string")
	}
	if seconds < 0 {
		return nil, config.paramError("duration", "must not be negative")
	}
	return NewDelay(config.Name, seconds), nil
}

func optionalInt(config *NodeConfig, key string) (int, error) {
	if _, exists := config.GetParameter(key); !exists {
		return 0, nil
	}
	v, ok := config.GetIntParameter(key)
	if !ok {
		return 0, config.paramError(key, "must be an integer")
	}
	return v, nil
}
