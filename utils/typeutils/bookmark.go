package typeutils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/goccy/go-json"
)

// ReformatBookmark converts a raw bookmark (from state, config or an API record)
// into its typed form: time.Time for datetime, int64 for integer
func ReformatBookmark(typ types.BookmarkType, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch typ {
	case types.IntegerBookmark:
		return reformatInteger(value)
	case types.DatetimeBookmark, "":
		return reformatDatetime(value)
	default:
		return nil, fmt.Errorf("unsupported bookmark type[%s]", typ)
	}
}

// FormatBookmark renders a typed bookmark in its persisted and query form
func FormatBookmark(typ types.BookmarkType, value any) (any, error) {
	typed, err := ReformatBookmark(typ, value)
	if err != nil || typed == nil {
		return typed, err
	}

	switch v := typed.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	default:
		return v, nil
	}
}

// BookmarkString is the representation sent as a query filter
func BookmarkString(typ types.BookmarkType, value any) (string, error) {
	formatted, err := FormatBookmark(typ, value)
	if err != nil {
		return "", err
	}
	if formatted == nil {
		return "", nil
	}
	return fmt.Sprintf("%v", formatted), nil
}

func reformatDatetime(value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case Time:
		return v.UTC(), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.UTC(), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return ParseTimestamp(v)
	default:
		return nil, fmt.Errorf("invalid datetime bookmark[%v] of type %T", value, value)
	}
}

func reformatInteger(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("integer bookmark[%d] overflows int64", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("integer bookmark[%v] has a fraction", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return nil, fmt.Errorf("invalid integer bookmark[%v] of type %T", value, value)
	}
}
