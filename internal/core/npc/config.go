package npc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// TreeConfig describes one behaviour-tree template, usually one per enemy archetype.
type TreeConfig struct {
	Name        string      `json:"name" yaml:"name" validate:"required"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string      `json:"version,omitempty" yaml:"version,omitempty"`
	Root        *NodeConfig `json:"root" yaml:"root" validate:"required"`
}

// NodeConfig describes a single node and its subtree. Composites use
// Children, decorators use Child.
type NodeConfig struct {
	Name        string         `json:"name" yaml:"name" validate:"required"`
	Type        string         `json:"type" yaml:"type" validate:"required"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Children    []*NodeConfig  `json:"children,omitempty" yaml:"children,omitempty" validate:"omitempty,dive,required"`
	Child       *NodeConfig    `json:"child,omitempty" yaml:"child,omitempty"`
	// Disabled nodes are built as a no-op that succeeds.
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func configValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return structValidator
}

// Validate checks the structural shape of the template: names and types
// present on every node. Parameter checks happen when the tree is built.
func (tc *TreeConfig) Validate() error {
	if tc == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := configValidator().Struct(tc); err != nil {
		return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, tc.Name, formatValidationErrors(err))
	}
	return nil
}

func formatValidationErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Namespace()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// GetParameter retrieves a raw parameter value.
func (nc *NodeConfig) GetParameter(key string) (any, bool) {
	if nc.Parameters == nil {
		return nil, false
	}
	value, exists := nc.Parameters[key]
	return value, exists
}

// GetStringParameter retrieves a string parameter.
func (nc *NodeConfig) GetStringParameter(key string) (string, bool) {
	value, exists := nc.GetParameter(key)
	if !exists {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}

// GetIntParameter retrieves an integer parameter. Whole floats are accepted
// because JSON decodes every number as float64.
func (nc *NodeConfig) GetIntParameter(key string) (int, bool) {
	value, exists := nc.GetParameter(key)
	if !exists {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// GetFloatParameter retrieves a numeric parameter.
func (nc *NodeConfig) GetFloatParameter(key string) (float64, bool) {
	value, exists := nc.GetParameter(key)
	if !exists {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// GetSecondsParameter retrieves a duration in seconds. Numbers are seconds;
// strings are parsed with time.ParseDuration ("750ms", "1.5s").
func (nc *NodeConfig) GetSecondsParameter(key string) (float64, bool) {
	if s, ok := nc.GetStringParameter(key); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, false
		}
		return d.Seconds(), true
	}
	return nc.GetFloatParameter(key)
}

// float reads an optional numeric parameter and rejects values of the wrong type.
func (nc *NodeConfig) float(key string, def float64) (float64, error) {
	if _, exists := nc.GetParameter(key); !exists {
		return def, nil
	}
	v, ok := nc.GetFloatParameter(key)
	if !ok {
		return 0, nc.paramError(key, "must be a number")
	}
	return v, nil
}

func (nc *NodeConfig) paramError(key, reason string) error {
	return fmt.Errorf("%w: node %q (%s): parameter %q %s", ErrInvalidConfig, nc.Name, nc.Type, key, reason)
}

// ToJSON renders the config as indented JSON.
func (tc *TreeConfig) ToJSON() ([]byte, error) {
	return json.MarshalIndent(tc, "", "  ")
}

// Clone returns a deep copy of the config.
func (tc *TreeConfig) Clone() *TreeConfig {
	data, err := json.Marshal(tc)
	if err != nil {
		return nil
	}
	clone := &TreeConfig{}
	if err = json.Unmarshal(data, clone); err != nil {
		return nil
	}
	return clone
}
