package memstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/healthhub/api/internal/platform/store"
)

func matches(data map[string]any, filters []store.Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matchOne(data[f.Column], f)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchOne(value any, f store.Filter) (bool, error) {
	switch f.Op {
	case store.OpEq:
		want, err := normalize(f.Value)
		if err != nil {
			return false, err
		}
		return sameValue(value, want), nil
	case store.OpIn:
		values, ok := f.Value.([]any)
		if !ok {
			return false, fmt.Errorf("memstore: in filter on %s needs []any, got %T", f.Column, f.Value)
		}
		for _, v := range values {
			want, err := normalize(v)
			if err != nil {
				return false, err
			}
			if sameValue(value, want) {
				return true, nil
			}
		}
		return false, nil
	case store.OpILike:
		pattern, ok := f.Value.(string)
		if !ok {
			return false, fmt.Errorf("memstore: ilike filter on %s needs a string", f.Column)
		}
		if value == nil {
			return false, nil
		}
		re, err := likeRegexp(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(fmt.Sprint(value)), nil
	case store.OpLt:
		want, err := normalize(f.Value)
		if err != nil {
			return false, err
		}
		if value == nil || want == nil {
			return false, nil
		}
		return compareValues(value, want) < 0, nil
	default:
		return false, fmt.Errorf("memstore: unsupported filter op %q", f.Op)
	}
}

// normalize gives v the shape it would have after a JSON round trip, which is
// how stored rows are held.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Equal(tb)
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// compareValues orders nil first, then numbers, timestamps and strings by
// their natural order.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := asNumber(a); ok {
		if fb, ok := asNumber(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || len(s) < len("2006-01-02T15:04:05Z") {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	return t, err == nil
}

// likeRegexp translates a SQL LIKE pattern with backslash escapes.
func likeRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?is)^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
