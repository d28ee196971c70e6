//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrConfigurationMissing is matched by every MissingError
var ErrConfigurationMissing = errors.New("configuration missing")

// MissingError means a key could not be resolved
// through instance, kind defaults, global defaults
// and hard default.
type MissingError struct {
	Key  string
	Kind string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("config parameter %q not configured for %s", e.Key, e.Kind)
}

// Is reports ErrConfigurationMissing
func (e *MissingError) Is(target error) bool {
	return target == ErrConfigurationMissing
}

// TypeError means a key is configured with an unexpected type
type TypeError struct {
	Key   string
	Kind  string
	Value interface{}
	Want  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("config parameter %q for %s: %v (%T) is not a %s", e.Key, e.Kind, e.Value, e.Value, e.Want)
}

// Resolver represents layered lookup of the configuration
// of one source instance.
type Resolver struct {
	kind     string
	instance map[string]interface{}
	defaults map[string]interface{}
}

// NewResolver constructs a resolver for an instance of kind.
// defaults holds the global defaults and, keyed by kind,
// the kind defaults.
func NewResolver(kind string, instance, defaults map[string]interface{}) *Resolver {
	if instance == nil {
		instance = map[string]interface{}{}
	}

	if defaults == nil {
		defaults = map[string]interface{}{}
	}

	return &Resolver{
		kind:     kind,
		instance: instance,
		defaults: defaults,
	}
}

// Kind returns the kind the resolver looks up defaults for
func (r *Resolver) Kind() string {
	return r.kind
}

// Get returns the value of key, first hit wins: instance,
// kind defaults, global defaults and then the hard default
// if it's supplied and not nil.
func (r *Resolver) Get(key string, def ...interface{}) (interface{}, error) {
	if v, ok := r.instance[key]; ok {
		return v, nil
	}

	if kd, ok := r.defaults[r.kind].(map[string]interface{}); ok {
		if v, ok := kd[key]; ok {
			return v, nil
		}
	}

	if v, ok := r.defaults[key]; ok {
		return v, nil
	}

	if len(def) > 0 && def[0] != nil {
		return def[0], nil
	}

	return nil, &MissingError{Key: key, Kind: r.kind}
}

// Has returns true if key resolves without a hard default
func (r *Resolver) Has(key string) bool {
	_, err := r.Get(key)
	return err == nil
}

// String returns key as a string
func (r *Resolver) String(key string, def ...string) (string, error) {
	v, err := r.Get(key, first(def))
	if err != nil {
		return "", err
	}

	switch t := v.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	case int, int64, float64, bool:
		return fmt.Sprint(t), nil
	}

	return "", r.typeError(key, v, "string")
}

// Int returns key as an int
func (r *Resolver) Int(key string, def ...int) (int, error) {
	v, err := r.Get(key, first(def))
	if err != nil {
		return 0, err
	}

	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	case float64:
		if t == math.Trunc(t) {
			return int(t), nil
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i, nil
		}
	}

	return 0, r.typeError(key, v, "integer")
}

// Float returns key as a float64
func (r *Resolver) Float(key string, def ...float64) (float64, error) {
	v, err := r.Get(key, first(def))
	if err != nil {
		return 0, err
	}

	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, nil
		}
	}

	return 0, r.typeError(key, v, "number")
}

// Bool returns key as a bool. Numbers are true if they're not zero.
func (r *Resolver) Bool(key string, def ...bool) (bool, error) {
	var d interface{}
	if len(def) > 0 {
		d = def[0]
	}

	v, err := r.Get(key, d)
	if err != nil {
		return false, err
	}

	switch t := v.(type) {
	case bool:
		return t, nil
	case int:
		return t != 0, nil
	case float64:
		return t != 0, nil
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b, nil
		}
	}

	return false, r.typeError(key, v, "boolean")
}

// Duration returns key as a time.Duration. Numbers are seconds,
// strings are parsed by time.ParseDuration.
func (r *Resolver) Duration(key string, def ...time.Duration) (time.Duration, error) {
	v, err := r.Get(key, first(def))
	if err != nil {
		return 0, err
	}

	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case int:
		return time.Duration(t) * time.Second, nil
	case int64:
		return time.Duration(t) * time.Second, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	case string:
		if d, err := time.ParseDuration(t); err == nil {
			return d, nil
		}
	}

	return 0, r.typeError(key, v, "duration")
}

// Strings returns key as a list of strings, a single
// string is returned as a one element list.
func (r *Resolver) Strings(key string) ([]string, error) {
	v, err := r.Get(key)
	if err != nil {
		return nil, err
	}

	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return t, nil
	case []interface{}:
		list := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, r.typeError(key, v, "list of strings")
			}
			list = append(list, s)
		}
		return list, nil
	}

	return nil, r.typeError(key, v, "string or list of strings")
}

func (r *Resolver) typeError(key string, v interface{}, want string) error {
	return &TypeError{Key: key, Kind: r.kind, Value: v, Want: want}
}

// first returns the first optional default or nil
func first[T any](def []T) interface{} {
	if len(def) > 0 {
		return def[0]
	}

	return nil
}
