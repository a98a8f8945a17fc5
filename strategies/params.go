package strategies

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParamKind is the coercion type of a strategy parameter.
type ParamKind string

const (
	KindInt    ParamKind = "int"
	KindFloat  ParamKind = "float"
	KindBool   ParamKind = "bool"
	KindString ParamKind = "string"
)

var (
	ErrBadParam     = errors.New("bad param")
	ErrUnknownParam = errors.New("unknown param")
	ErrOutOfRange   = errors.New("param out of range")
)

// ParamSpec describes one tunable parameter: its key, kind, default and an
// optional numeric range with a sweep step. Min/Max/Step are ignored for bool
// and string kinds.
type ParamSpec struct {
	Key     string
	Kind    ParamKind
	Default any
	Label   string
	Help    string
	Min     *float64
	Max     *float64
	Step    *float64
}

func rangeOf(min, max float64) (*float64, *float64) {
	return &min, &max
}

func stepOf(step float64) *float64 {
	return &step
}

// Coerce parses a raw string into the spec's kind. Int accepts float syntax
// and truncates, matching the lenient CLI input handling.
func Coerce(value string, kind ParamKind) (any, error) {
	v := strings.TrimSpace(value)
	switch kind {
	case KindInt:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot coerce %q to int", ErrBadParam, value)
		}
		return int(f), nil
	case KindFloat:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot coerce %q to float", ErrBadParam, value)
		}
		return f, nil
	case KindBool:
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true, nil
		case "0", "false", "f", "no", "n", "off":
			return false, nil
		}
		return nil, fmt.Errorf("%w: cannot coerce %q to bool", ErrBadParam, value)
	}
	return v, nil
}

// ParseKVList turns "key=value" arguments into typed overrides against a
// schema. Unknown keys are rejected with the known keys listed.
func ParseKVList(kvs []string, schema []ParamSpec) (map[string]any, error) {
	specs := make(map[string]ParamSpec, len(schema))
	for _, s := range schema {
		specs[s.Key] = s
	}

	out := make(map[string]any)
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q, use key=value", ErrBadParam, kv)
		}
		k = strings.TrimSpace(k)
		spec, known := specs[k]
		if !known {
			return nil, fmt.Errorf("%w: %q, known: %s", ErrUnknownParam, k, strings.Join(knownKeys(schema), ", "))
		}
		coerced, err := Coerce(v, spec.Kind)
		if err != nil {
			return nil, err
		}
		out[k] = coerced
	}
	return out, nil
}

// MergeParams fills a full parameter map from schema defaults plus overrides,
// and range-checks every numeric value.
func MergeParams(overrides map[string]any, schema []ParamSpec) (map[string]any, error) {
	params := make(map[string]any, len(schema))
	for _, s := range schema {
		params[s.Key] = s.Default
	}
	for k, v := range overrides {
		params[k] = v
	}

	for _, s := range schema {
		if s.Kind != KindInt && s.Kind != KindFloat {
			continue
		}
		v, ok := numeric(params[s.Key])
		if !ok {
			continue
		}
		if s.Min != nil && v < *s.Min {
			return nil, fmt.Errorf("%w: %s = %v < min %v", ErrOutOfRange, s.Key, v, *s.Min)
		}
		if s.Max != nil && v > *s.Max {
			return nil, fmt.Errorf("%w: %s = %v > max %v", ErrOutOfRange, s.Key, v, *s.Max)
		}
	}
	return params, nil
}

// IntParam reads a merged parameter as int, accepting float values from
// sweeps over integer ranges.
func IntParam(params map[string]any, key string) int {
	v, _ := numeric(params[key])
	return int(v)
}

// FloatParam reads a merged parameter as float64.
func FloatParam(params map[string]any, key string) float64 {
	v, _ := numeric(params[key])
	return v
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func knownKeys(schema []ParamSpec) []string {
	keys := make([]string, 0, len(schema))
	for _, s := range schema {
		keys = append(keys, s.Key)
	}
	sort.Strings(keys)
	return keys
}
