package cascade

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
)

// source supplies nested values: keys are single path segments, and values are maps (for tables) or scalars (string, bool, int, float64).
type source interface {
	Name() string
	values() (map[string]any, error)
}

type defaultsSource struct {
	m map[string]any
}

func (s defaultsSource) Name() string { return "defaults" }

func (s defaultsSource) values() (map[string]any, error) {
	out := map[string]any{}
	for k, v := range s.m {
		if err := setPath(out, k, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type tomlFileSource struct {
	path string
}

func (s tomlFileSource) Name() string { return "TOML file " + s.path }

func (s tomlFileSource) values() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("line %d, column %d: %w", row, col, err)
		}
		return nil, err
	}
	return normalizeTOML(doc), nil
}

// normalizeTOML narrows go-toml's int64 to int, recursing into tables.
func normalizeTOML(m map[string]any) map[string]any {
	for k, v := range m {
		switch vv := v.(type) {
		case int64:
			m[k] = int(vv)
		case map[string]any:
			m[k] = normalizeTOML(vv)
		}
	}
	return m
}

type envSource struct {
	getenv func(string) string
	keys   map[string]string // config key -> variable name
}

func (s envSource) Name() string { return "environment" }

func (s envSource) values() (map[string]any, error) {
	out := map[string]any{}
	for key, name := range s.keys {
		v := strings.TrimSpace(s.getenv(name))
		if v == "" {
			continue
		}
		if err := setPath(out, key, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type flagSource struct {
	fs   *pflag.FlagSet
	keys map[string]string // config key -> flag name
}

func (s flagSource) Name() string { return "flags" }

func (s flagSource) values() (map[string]any, error) {
	byFlag := make(map[string]string, len(s.keys))
	for key, name := range s.keys {
		byFlag[name] = key
	}
	out := map[string]any{}
	var err error
	s.fs.Visit(func(f *pflag.Flag) {
		key, ok := byFlag[f.Name]
		if !ok || err != nil {
			return
		}
		err = setPath(out, key, f.Value.String())
	})
	return out, err
}

// setPath stores v in m under dotted key, creating intermediate tables.
func setPath(m map[string]any, key string, v any) error {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p]
		if !ok {
			child := map[string]any{}
			m[p] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("key %q: %q is not a table", key, p)
		}
		m = child
	}
	last := parts[len(parts)-1]
	if _, ok := m[last]; ok {
		return fmt.Errorf("key %q set twice", key)
	}
	m[last] = v
	return nil
}
