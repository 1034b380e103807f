// Package vars loads template variables from files, remote URLs and
// command-line assignments.
package vars

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/neurodesk/liquid/pkg/netcache"
	"github.com/neurodesk/liquid/pkg/starlark"
)

// Loader reads variable sources. Remote sources go through Cache.
type Loader struct {
	Cache  *netcache.Cache
	Logger *slog.Logger
}

// LoadAll loads every source in order and merges them, later sources
// overriding earlier ones. Starlark presets see the variables loaded before
// them.
func (l *Loader) LoadAll(ctx context.Context, sources []string) (map[string]any, error) {
	out := map[string]any{}
	for _, src := range sources {
		v, err := l.Load(ctx, src, out)
		if err != nil {
			return nil, err
		}
		out = Merge(out, v)
	}
	return out, nil
}

// Load reads a single source. A source is a local path or an http(s) URL;
// its extension picks the decoder.
func (l *Loader) Load(ctx context.Context, source string, scope map[string]any) (map[string]any, error) {
	var (
		data []byte
		name = source
		err  error
	)
	if isRemote(source) {
		if l.Cache == nil {
			return nil, fmt.Errorf("loading %s: remote variables need a cache directory", source)
		}
		var e netcache.Entry
		data, e, err = l.Cache.Read(ctx, source)
		if err != nil {
			return nil, err
		}
		name = e.Filename
		l.logger().Debug("loaded remote variables", "url", source, "cached", e.FromCache)
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("loading variables: %w", err)
		}
	}

	v, err := Decode(name, data, scope, l.logger())
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", source, err)
	}
	return v, nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Decode parses data by the extension of name. Unknown extensions are read as
// YAML. Starlark presets run with scope as globals, and the result includes
// scope.
func Decode(name string, data []byte, scope map[string]any, logger *slog.Logger) (map[string]any, error) {
	switch strings.ToLower(extension(name)) {
	case ".json":
		return decodeJSON(data)
	case ".star":
		ev := starlark.NewEvaluator(logger)
		ev.LoadVars(scope)
		if _, err := ev.ExecFile(name, data); err != nil {
			return nil, err
		}
		return ev.Export(), nil
	default:
		return decodeYAML(data)
	}
}

func extension(name string) string {
	if strings.Contains(name, "://") {
		return path.Ext(name)
	}
	return filepath.Ext(name)
}

func decodeYAML(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func decodeJSON(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return numbers(out).(map[string]any), nil
}

// numbers replaces json.Number with int64 or float64.
func numbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, item := range t {
			t[k] = numbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = numbers(item)
		}
		return t
	}
	return v
}

// Merge deep-merges src over dst and returns the result. Nested maps are
// merged key by key; any other value in src replaces the one in dst. Neither
// input is modified.
func Merge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		sm, srcIsMap := v.(map[string]any)
		dm, dstIsMap := out[k].(map[string]any)
		if srcIsMap && dstIsMap {
			out[k] = Merge(dm, sm)
			continue
		}
		out[k] = v
	}
	return out
}

// Set applies an assignment like "a.b=value" to vars. The value is typed
// the way a YAML scalar would be, so "3" becomes a number and "true" a bool.
func Set(vars map[string]any, assignment string) error {
	key, raw, ok := strings.Cut(assignment, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("invalid assignment %q (want key=value)", assignment)
	}

	var value any = raw
	if raw != "" {
		var typed any
		if err := yaml.Unmarshal([]byte(raw), &typed); err == nil && typed != nil {
			value = typed
		}
	}

	parts := strings.Split(key, ".")
	cur := vars
	for i, part := range parts[:len(parts)-1] {
		if part == "" {
			return fmt.Errorf("invalid assignment %q: empty key segment", assignment)
		}
		next, exists := cur[part]
		if !exists {
			m := map[string]any{}
			cur[part] = m
			cur = m
			continue
		}
		m, isMap := next.(map[string]any)
		if !isMap {
			return fmt.Errorf("invalid assignment %q: %s is not a map", assignment, strings.Join(parts[:i+1], "."))
		}
		cur = m
	}
	last := parts[len(parts)-1]
	if last == "" {
		return fmt.Errorf("invalid assignment %q: empty key segment", assignment)
	}
	cur[last] = value
	return nil
}
