package npc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeusync/enemyai/pkg/concurrent"
	"gopkg.in/yaml.v3"
)

// LoadJSON decodes a tree config from JSON. Unknown fields are rejected.
func LoadJSON(r io.Reader) (*TreeConfig, error) {
	var c TreeConfig
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &c, nil
}

// LoadYAML decodes a tree config from YAML. Unknown fields are rejected.
func LoadYAML(r io.Reader) (*TreeConfig, error) {
	var c TreeConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &c, nil
}

// IsTemplateFile reports whether path has a template extension.
func IsTemplateFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// LoadFile decodes a tree config, choosing the format from the extension.
func LoadFile(path string) (*TreeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c *TreeConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		c, err = LoadJSON(bytes.NewReader(data))
	case ".yaml", ".yml":
		c, err = LoadYAML(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s: unsupported extension", ErrInvalidConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadDir decodes every template file in dir, sorted by file name.
func LoadDir(ctx context.Context, dir string) ([]*TreeConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsTemplateFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	return concurrent.MapLimit(ctx, paths, 4, func(_ context.Context, path string) (*TreeConfig, error) {
		return LoadFile(path)
	})
}

// BuildFile loads and builds a single template file.
func (b *Builder) BuildFile(path string) (*Template, error) {
	c, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := b.BuildTemplate(c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadTemplates loads every template in dir into reg and returns their names.
// Nothing is registered unless every file builds.
func (b *Builder) LoadTemplates(ctx context.Context, dir string, reg *TemplateRegistry) ([]string, error) {
	configs, err := LoadDir(ctx, dir)
	if err != nil {
		return nil, err
	}

	templates := make([]*Template, 0, len(configs))
	seen := make(map[string]struct{}, len(configs))
	for _, c := range configs {
		t, err := b.BuildTemplate(c)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[t.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate template name %q in %s", ErrInvalidConfig, t.Name(), dir)
		}
		seen[t.Name()] = struct{}{}
		templates = append(templates, t)
	}

	names := make([]string, 0, len(templates))
	for _, t := range templates {
		reg.Register(t)
		names = append(names, t.Name())
	}
	return names, nil
}
