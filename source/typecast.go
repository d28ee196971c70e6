//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type typecast func(interface{}) (interface{}, error)

var typecasts = map[string]typecast{
	"int":    toInt,
	"float":  toFloat,
	"str":    toStr,
	"string": toStr,
	"bool":   toBool,
}

func toInt(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint64:
		if t > math.MaxInt64 {
			break
		}
		return int64(t), nil
	case float32:
		return toInt(float64(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			break
		}
		return int64(t), nil
	case bool:
		if t {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return i, nil
		}
	case []byte:
		return toInt(string(t))
	}

	return nil, fmt.Errorf("%w: %v (%T) to int", ErrInvalidValue, v, v)
}

func toFloat(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	case bool:
		if t {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, nil
		}
	case []byte:
		return toFloat(string(t))
	}

	return nil, fmt.Errorf("%w: %v (%T) to float", ErrInvalidValue, v, v)
}

func toStr(v interface{}) (interface{}, error) {
	return FormatValue(v), nil
}

func toBool(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int:
		return t != 0, nil
	case int32:
		return t != 0, nil
	case int64:
		return t != 0, nil
	case uint64:
		return t != 0, nil
	case float32:
		return t != 0, nil
	case float64:
		return t != 0, nil
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b, nil
		}
	case []byte:
		return toBool(string(t))
	}

	return nil, fmt.Errorf("%w: %v (%T) to bool", ErrInvalidValue, v, v)
}

// FormatValue returns the stored string form of a value
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}

	return fmt.Sprint(v)
}
