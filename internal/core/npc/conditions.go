package npc

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/zeusync/enemyai/internal/core/observability/log"
	"github.com/zeusync/enemyai/internal/core/systems/physics"
)

// IsPlayerInRange succeeds when the player is strictly closer than Range to
// the entity. The range is fixed at construction so the node can be shared.
type IsPlayerInRange struct {
	*ConditionBase
	rng float64
}

func NewIsPlayerInRange(name string, r float64) *IsPlayerInRange {
	n := &IsPlayerInRange{rng: r}
	n.ConditionBase = NewConditionBase(name, TypeIsPlayerInRange, n.check)
	return n
}

func (n *IsPlayerInRange) check(tc *TickContext, id EntityID) bool {
	p := tc.provider()
	if p == nil {
		return false
	}
	enemy, ok := p.GetEnemyPosition(id)
	if !ok {
		return false
	}
	player, ok := p.GetPlayerPosition()
	if !ok {
		return false
	}
	return enemy.Distance(player) < n.rng
}

func (n *IsPlayerInRange) Range() float64 { return n.rng }

func (n *IsPlayerInRange) Clone() Node { return n }

// IsPlayerDead succeeds while the provider reports the player as dead.
type IsPlayerDead struct {
	*ConditionBase
}

func NewIsPlayerDead(name string) *IsPlayerDead {
	n := &IsPlayerDead{}
	n.ConditionBase = NewConditionBase(name, TypeIsPlayerDead, n.check)
	return n
}

func (n *IsPlayerDead) check(tc *TickContext, _ EntityID) bool {
	p := tc.provider()
	return p != nil && p.GetPlayerIsDie()
}

func (n *IsPlayerDead) Clone() Node { return n }

// ExprEnv is what an Expression condition can see.
type ExprEnv struct {
	Entity     int          `expr:"entity"`
	Distance   float64      `expr:"distance"`
	PlayerDead bool         `expr:"player_dead"`
	DeltaTime  float64      `expr:"dt"`
	Tick       uint64       `expr:"tick"`
	Enemy      physics.Vec3 `expr:"enemy"`
	Player     physics.Vec3 `expr:"player"`
}

// Expression is a condition authored as an expr-lang boolean expression,
// e.g. `distance < 4 && !player_dead`. The program is compiled once when the
// template is built; the node is shared between instances.
type Expression struct {
	*ConditionBase
	source  string
	program *vm.Program
}

// NewExpression compiles source. Compile errors are configuration errors.
func NewExpression(name, source string) (*Expression, error) {
	program, err := expr.Compile(source, expr.Env(ExprEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: expression %q: %v", ErrInvalidConfig, name, err)
	}
	n := &Expression{source: source, program: program}
	n.ConditionBase = NewConditionBase(name, TypeExpression, n.check)
	return n, nil
}

func (n *Expression) Source() string { return n.source }

func (n *Expression) check(tc *TickContext, id EntityID) bool {
	p := tc.provider()
	if p == nil {
		return false
	}
	enemy, ok := p.GetEnemyPosition(id)
	if !ok {
		return false
	}
	player, ok := p.GetPlayerPosition()
	if !ok {
		return false
	}

	env := ExprEnv{
		Entity:     int(id),
		Distance:   enemy.Distance(player),
		PlayerDead: p.GetPlayerIsDie(),
		DeltaTime:  tc.DeltaTime(),
		Tick:       tc.Tick,
		Enemy:      enemy,
		Player:     player,
	}
	out, err := expr.Run(n.program, env)
	if err != nil {
		tc.logger().Debug("expression evaluation failed", logNode(n), logEntity(id), log.Error(err))
		return false
	}
	b, _ := out.(bool)
	return b
}

func (n *Expression) Clone() Node { return n }
