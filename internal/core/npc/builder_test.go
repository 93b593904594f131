package npc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/enemyai/internal/core/systems/physics"
)

const gruntYAML = `
name: grunt
description: melee enemy that closes in and swings
version: "1"
root:
  name: root
  type: Selector
  children:
    - name: attack
      type: Sequence
      children:
        - name: in_range
          type: IsPlayerInRange
          parameters: {range: 2}
        - name: hit
          type: DamageToPlayer
          parameters: {damage_type: melee}
        - name: cooldown
          type: Delay
          parameters: {duration: 500ms}
    - name: chase
      type: ChasePlayer
      parameters: {move_speed: 3, rotation_speed: 6, stop_distance: 1.5}
`

func buildYAML(t *testing.T, src string) (*Template, error) {
	t.Helper()
	cfg, err := LoadYAML(strings.NewReader(src))
	require.NoError(t, err)
	return NewBuilder().BuildTemplate(cfg)
}

func TestBuildTemplateFromYAML(t *testing.T) {
	tmpl, err := buildYAML(t, gruntYAML)
	require.NoError(t, err)

	assert.Equal(t, "grunt", tmpl.Name())
	root := tmpl.Root()
	require.IsType(t, &Selector{}, root)

	children := root.(Parent).Children()
	require.Len(t, children, 2)
	attack := children[0].(Parent).Children()
	require.Len(t, attack, 3)

	assert.InDelta(t, 2.0, attack[0].(*IsPlayerInRange).Range(), 1e-9)
	assert.Equal(t, "melee", attack[1].(*DamageToPlayer).DamageType())
	assert.InDelta(t, 0.5, attack[2].(*Delay).Target(), 1e-9)

	chase := children[1].(*ChasePlayer)
	assert.InDelta(t, 3.0, chase.MoveSpeed(), 1e-9)
	assert.InDelta(t, 6.0, chase.RotationSpeed(), 1e-9)
	assert.InDelta(t, 1.5, chase.StopDistance(), 1e-9)

	cfg := tmpl.Config()
	require.NotNil(t, cfg)
	assert.Equal(t, "melee enemy that closes in and swings", cfg.Description)
}

func TestBuildTemplateFromJSON(t *testing.T) {
	src := `{
		"name": "turret",
		"root": {
			"name": "root",
			"type": "Sequence",
			"children": [
				{"name": "see", "type": "Expression", "parameters": {"expression": "distance < 10"}},
				{"name": "shoot", "type": "DamageToPlayer", "parameters": {"damage_type": "ranged"}},
				{"name": "reload", "type": "Delay", "parameters": {"duration": 1.5}}
			]
		}
	}`
	cfg, err := LoadJSON(strings.NewReader(src))
	require.NoError(t, err)

	tmpl, err := NewBuilder().BuildTemplate(cfg)
	require.NoError(t, err)
	children := tmpl.Root().(Parent).Children()
	assert.Equal(t, "distance < 10", children[0].(*Expression).Source())
	assert.InDelta(t, 1.5, children[2].(*Delay).Target(), 1e-9)
}

func TestBuildTemplateRejectsMisconfiguration(t *testing.T) {
	tests := []struct {
		name    string
		root    string
		wantErr error
	}{
		{
			name:    "negative delay",
			root:    `{name: d, type: Delay, parameters: {duration: -1}}`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "missing delay duration",
			root:    `{name: d, type: Delay}`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "bad duration string",
			root:    `{name: d, type: Delay, parameters: {duration: soon}}`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "zero range",
			root:    `{name: r, type: IsPlayerInRange, parameters: {range: 0}}`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "range not a number",
			root:    `{name: r, type: IsPlayerInRange, parameters: {range: far}}`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "negative speed",
			root:    `{name: c, type: ChasePlayer, parameters: {move_speed: -2}}`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "empty damage type",
			root:    `{name: h, type: DamageToPlayer, parameters: {damage_type: ""}}`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "bad expression",
			root:    `{name: e, type: Expression, parameters: {expression: "distance <"}}`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "fractional repeat count",
			root:    `{name: r, type: Repeater, parameters: {count: 1.5}, child: {name: w, type: Delay, parameters: {duration: 1}}}`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown type",
			root:    `{name: x, type: Teleport}`,
			wantErr: ErrUnknownNodeType,
		},
		{
			name:    "leaf with children",
			root:    `{name: d, type: Delay, parameters: {duration: 1}, children: [{name: e, type: IsPlayerDead}]}`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "decorator without child",
			root:    `{name: i, type: Inverter}`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "missing node type",
			root:    `{name: nameless}`,
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "nested error",
			root:    `{name: s, type: Sequence, children: [{name: ok, type: IsPlayerDead}, {name: bad, type: Delay, parameters: {duration: -3}}]}`,
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildYAML(t, "name: broken\nroot: "+tt.root+"\n")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTreeConfigValidate(t *testing.T) {
	assert.ErrorIs(t, (*TreeConfig)(nil).Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, (&TreeConfig{Name: "x"}).Validate(), ErrInvalidConfig)

	err := (&TreeConfig{Root: &NodeConfig{Name: "r", Type: TypeIsPlayerDead}}).Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "Name is required")
}

func TestValidateLeavesParametersToBuild(t *testing.T) {
	cfg := &TreeConfig{Name: "x", Root: &NodeConfig{Name: "r", Type: TypeIsPlayerInRange}}

	require.NoError(t, cfg.Validate(), "shape is fine")
	_, err := NewBuilder().BuildTemplate(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig, "missing range is caught when building")
}

func TestLoadYAMLRejectsUnknownFields(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("name: x\nroot: {name: r, type: Delay, paramz: {duration: 1}}\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDisabledNodeSucceeds(t *testing.T) {
	tmpl, err := buildYAML(t, `
name: quiet
root:
  name: root
  type: Sequence
  children:
    - name: hit
      type: DamageToPlayer
      disabled: true
    - name: ok
      type: IsPlayerDead
      disabled: true
`)
	require.NoError(t, err)

	tc := tickCtx(nil, 0.1)
	assert.Equal(t, StateSuccess, tmpl.Root().Evaluate(tc, 1))
	assert.Zero(t, tc.Events.Len())
}

func TestRegisterCustomNodeType(t *testing.T) {
	b := NewBuilder()
	b.RegisterNodeType(NewNodeFactory("Always", ArityLeaf, func(c *NodeConfig) (Node, error) {
		return NewAction(c.Name, func(*TickContext, EntityID) NodeState { return StateSuccess }), nil
	}))
	assert.Contains(t, b.RegisteredTypes(), "Always")
	assert.Contains(t, b.RegisteredTypes(), TypeChasePlayer)

	tmpl, err := b.BuildTemplate(&TreeConfig{Name: "t", Root: &NodeConfig{Name: "a", Type: "Always"}})
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, tmpl.Root().Evaluate(tickCtx(nil, 0.1), 1))
}

func TestTemplateFingerprint(t *testing.T) {
	a, err := buildYAML(t, gruntYAML)
	require.NoError(t, err)
	b, err := buildYAML(t, gruntYAML)
	require.NoError(t, err)
	c, err := buildYAML(t, strings.Replace(gruntYAML, "range: 2", "range: 3", 1))
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	coded := NewTemplate("coded", NewSequence("root", NewDelay("wait", 1)))
	assert.NotZero(t, coded.Fingerprint())
	assert.Nil(t, coded.Config())
}

func TestInstancesAreIndependent(t *testing.T) {
	tmpl, err := buildYAML(t, gruntYAML)
	require.NoError(t, err)

	w := newStubWorld(physics.V3(0, 0, 0))
	w.addEnemy(1, physics.V3(1, 0, 0))
	w.addEnemy(2, physics.V3(1, 0, 0))

	a, err := InstantiateTree(tmpl)
	require.NoError(t, err)
	b, err := InstantiateTree(tmpl)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, tmpl.Fingerprint(), a.Fingerprint())

	tc := tickCtx(w, 0.25)
	assert.Equal(t, StateRunning, Evaluate(a, tc, 1), "attacked, now cooling down")
	assert.Equal(t, StateRunning, a.LastState())
	assert.Equal(t, StateInvalid, b.LastState())

	assert.Equal(t, StateRunning, Evaluate(b, tc, 2))
	assert.Equal(t, StateSuccess, Evaluate(a, tc, 1), "cooldown finished")
	assert.Equal(t, 2, tc.Events.Len())
}

func TestTemplateChangesDoNotReachInstances(t *testing.T) {
	w := newStubWorld(physics.V3(0, 0, 0))
	w.addEnemy(1, physics.V3(1, 0, 0))
	tc := tickCtx(w, 0.25)

	reg := NewTemplateRegistry()
	cond := NewIsPlayerInRange("near", 2)
	reg.Register(NewTemplate("guard", cond))
	v1, err := reg.Get("guard")
	require.NoError(t, err)
	inst, err := InstantiateTree(v1)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, Evaluate(inst, tc, 1))

	replaced := reg.Register(NewTemplate("guard", NewIsPlayerInRange("near", 0.5)))
	require.True(t, replaced)

	assert.Equal(t, StateSuccess, Evaluate(inst, tc, 1), "instance keeps the range it was built with")
	assert.InDelta(t, 2.0, cond.Range(), 1e-9)

	v2, err := reg.Get("guard")
	require.NoError(t, err)
	fresh, err := InstantiateTree(v2)
	require.NoError(t, err)
	assert.Equal(t, StateFailure, Evaluate(fresh, tc, 1))
}

func TestDiscardTree(t *testing.T) {
	tmpl, err := buildYAML(t, gruntYAML)
	require.NoError(t, err)
	inst, err := InstantiateTree(tmpl)
	require.NoError(t, err)

	w := newStubWorld(physics.V3(0, 0, 0))
	w.addEnemy(1, physics.V3(1, 0, 0))
	tc := tickCtx(w, 0.25)

	DiscardTree(inst)
	DiscardTree(inst)
	assert.True(t, inst.Discarded())
	assert.Equal(t, StateFailure, Evaluate(inst, tc, 1))
	assert.Zero(t, tc.Events.Len(), "discarded trees do not act")

	_, err = InstantiateTree(nil)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestTemplateRegistry(t *testing.T) {
	reg := NewTemplateRegistry()
	first := NewTemplate("grunt", NewDelay("wait", 1))
	second := NewTemplate("grunt", NewDelay("wait", 2))

	assert.False(t, reg.Register(first))
	old, err := InstantiateTree(first)
	require.NoError(t, err)

	assert.True(t, reg.Register(second), "same name replaces")
	got, err := reg.Get("grunt")
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.InDelta(t, 1.0, old.Root().(*Delay).Target(), 1e-9, "existing instances keep the old tree")

	_, err = reg.Get("boss")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	assert.Equal(t, []string{"grunt"}, reg.Names())
	assert.True(t, reg.Remove("grunt"))
	assert.Zero(t, reg.Len())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTemplates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "grunt.yaml", gruntYAML)
	writeFile(t, dir, "sentry.json", `{"name": "sentry", "root": {"name": "look", "type": "IsPlayerDead"}}`)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))

	reg := NewTemplateRegistry()
	names, err := NewBuilder().LoadTemplates(context.Background(), dir, reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"grunt", "sentry"}, names)
	assert.Equal(t, []string{"grunt", "sentry"}, reg.Names())
}

func TestLoadTemplatesIsAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", gruntYAML)
	writeFile(t, dir, "b.yaml", "name: bad\nroot: {name: d, type: Delay, parameters: {duration: -1}}\n")

	reg := NewTemplateRegistry()
	_, err := NewBuilder().LoadTemplates(context.Background(), dir, reg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, reg.Len())
}

func TestLoadTemplatesRejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", gruntYAML)
	writeFile(t, dir, "b.yaml", gruntYAML)

	_, err := NewBuilder().LoadTemplates(context.Background(), dir, NewTemplateRegistry())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuildFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "grunt.yml", gruntYAML)

	tmpl, err := NewBuilder().BuildFile(path)
	require.NoError(t, err)
	assert.Equal(t, "grunt", tmpl.Name())

	_, err = NewBuilder().BuildFile(writeFile(t, dir, "grunt.toml", "name = 1"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
