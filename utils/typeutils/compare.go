package typeutils

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Compare returns 0 for equal, -1 if a < b else 1 if a > b.
// nil sorts before every value, so a nil bookmark never wins a maximum.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if aNum, ok := toFloat(a); ok {
		if bNum, ok := toFloat(b); ok {
			if aInt, aOk := toInt(a); aOk {
				if bInt, bOk := toInt(b); bOk {
					return compareOrdered(aInt, bInt)
				}
			}
			return compareFloat(aNum, bNum)
		}
	}

	switch aVal := a.(type) {
	case time.Time:
		if bTime, ok := asTime(b); ok {
			return aVal.Compare(bTime)
		}
	case Time:
		if bTime, ok := asTime(b); ok {
			return aVal.Time.Compare(bTime)
		}
	case bool:
		if bBool, ok := b.(bool); ok {
			// false < true
			switch {
			case aVal == bBool:
				return 0
			case !aVal:
				return -1
			default:
				return 1
			}
		}
	}

	// For any other types, convert to string for comparison
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

// Max returns the greater of a and b, preferring a on ties
func Max(a, b any) any {
	if Compare(b, a) > 0 {
		return b
	}
	return a
}

func compareOrdered[T int64 | uint64](a, b T) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	if a == b {
		return 0
	}
	if math.IsNaN(a) {
		if math.IsNaN(b) {
			return 0
		}
		return -1
	}
	if math.IsNaN(b) {
		return 1
	}

	const eps = 1e-6
	diff := a - b
	if math.Abs(diff) < eps {
		return 0
	} else if diff < 0 {
		return -1
	}
	return 1
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case Time:
		return t.Time, true
	}
	return time.Time{}, false
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int, int8, int16, int32, int64:
		return reflect.ValueOf(n).Int(), true
	case uint, uint8, uint16, uint32:
		return int64(reflect.ValueOf(n).Uint()), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int, int8, int16, int32, int64:
		return float64(reflect.ValueOf(n).Int()), true
	case uint, uint8, uint16, uint32, uint64:
		return float64(reflect.ValueOf(n).Uint()), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
