package conflict

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MergeKind names a per-field merge strategy
type MergeKind string

const (
	// MergeArrayUnion unions two arrays, preserving local-then-platform order
	MergeArrayUnion MergeKind = "array_union"
	// MergeObjectShallow shallow-merges two objects, platform keys override
	MergeObjectShallow MergeKind = "object_merge"
	// MergeConcat concatenates two strings with the configured separator
	MergeConcat MergeKind = "concat"
	// MergeNumericAverage averages two numbers
	MergeNumericAverage MergeKind = "average"
)

// applyMerge combines both sides. A type mismatch is a merge failure, not a
// best-effort coercion.
func applyMerge(kind MergeKind, local, platform any, separator string) (any, error) {
	switch kind {
	case MergeArrayUnion:
		return mergeArrayUnion(local, platform)
	case MergeObjectShallow:
		return mergeObjectShallow(local, platform)
	case MergeConcat:
		return mergeConcat(local, platform, separator)
	case MergeNumericAverage:
		return mergeAverage(local, platform)
	default:
		return nil, fmt.Errorf("unknown merge kind %q", kind)
	}
}

func mergeArrayUnion(local, platform any) (any, error) {
	localSlice, ok := toAnySlice(local)
	if !ok {
		return nil, fmt.Errorf("array_union requires arrays, local is %T", local)
	}
	platformSlice, ok := toAnySlice(platform)
	if !ok {
		return nil, fmt.Errorf("array_union requires arrays, platform is %T", platform)
	}

	union := make([]any, 0, len(localSlice)+len(platformSlice))
	seen := make(map[string]struct{}, len(localSlice)+len(platformSlice))
	for _, v := range append(localSlice, platformSlice...) {
		key := canonicalKey(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		union = append(union, v)
	}
	return union, nil
}

func mergeObjectShallow(local, platform any) (any, error) {
	localMap, ok := toAnyMap(local)
	if !ok {
		return nil, fmt.Errorf("object_merge requires objects, local is %T", local)
	}
	platformMap, ok := toAnyMap(platform)
	if !ok {
		return nil, fmt.Errorf("object_merge requires objects, platform is %T", platform)
	}

	merged := make(map[string]any, len(localMap)+len(platformMap))
	for k, v := range localMap {
		merged[k] = v
	}
	for k, v := range platformMap {
		merged[k] = v
	}
	return merged, nil
}

func mergeConcat(local, platform any, separator string) (any, error) {
	localStr, ok := local.(string)
	if !ok {
		return nil, fmt.Errorf("concat requires strings, local is %T", local)
	}
	platformStr, ok := platform.(string)
	if !ok {
		return nil, fmt.Errorf("concat requires strings, platform is %T", platform)
	}
	if localStr == platformStr {
		return localStr, nil
	}
	if localStr == "" {
		return platformStr, nil
	}
	if platformStr == "" {
		return localStr, nil
	}
	return localStr + separator + platformStr, nil
}

func mergeAverage(local, platform any) (any, error) {
	localNum, ok := toFloat(local)
	if !ok {
		return nil, fmt.Errorf("average requires numbers, local is %T", local)
	}
	platformNum, ok := toFloat(platform)
	if !ok {
		return nil, fmt.Errorf("average requires numbers, platform is %T", platform)
	}
	return (localNum + platformNum) / 2, nil
}

// ---------------------------------------------------------------------------
// Value helpers
// ---------------------------------------------------------------------------

func toAnySlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	default:
		return nil, false
	}
}

func toAnyMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[k] = e
		}
		return out, true
	default:
		return nil, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case decimal.Decimal:
		f, _ := n.Float64()
		return f, true
	default:
		return 0, false
	}
}

// canonicalKey renders a value as a stable dedupe key
func canonicalKey(v any) string {
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

func valueEqual(a, b any) bool {
	return canonicalKey(a) == canonicalKey(b)
}

func valueEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
