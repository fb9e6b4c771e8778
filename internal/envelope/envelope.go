// Package envelope locates resource data inside the legacy backend's
// inconsistent JSON wrappers. The same logical resource has been observed
// arriving as {data:[...]}, {data:{items:[...]}}, {data:{<plural>:[...]}},
// {<plural>:[...]} or a bare array, so extraction runs an ordered list of
// matchers instead of trusting any single shape.
package envelope

import (
	"encoding/json"
	"sort"
)

// Shape identifies which wrapper convention matched during extraction.
type Shape string

const (
	ShapeDataKeyed Shape = "data_keyed" // {data:{<plural>:[...]}}
	ShapeDataItems Shape = "data_items" // {data:{items:[...]}}
	ShapeDataArray Shape = "data_array" // {data:[...]}
	ShapeKeyed     Shape = "keyed"      // {<plural>:[...]}
	ShapeBare      Shape = "bare"       // [...]
	ShapeScan      Shape = "scan"       // first array found under data ?? payload
	ShapeNone      Shape = "none"
)

// discriminants mark an object as a plausible entity rather than a wrapper.
var discriminants = []string{"_id", "id"}

type listMatcher struct {
	shape Shape
	match func(raw any, key string) ([]any, bool)
}

// Ordered by priority. First match wins; later matchers never run.
var listMatchers = []listMatcher{
	{ShapeDataKeyed, func(raw any, key string) ([]any, bool) {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		inner, ok := obj["data"].(map[string]any)
		if !ok {
			return nil, false
		}
		arr, ok := inner[key].([]any)
		return arr, ok
	}},
	{ShapeDataItems, func(raw any, _ string) ([]any, bool) {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		inner, ok := obj["data"].(map[string]any)
		if !ok {
			return nil, false
		}
		arr, ok := inner["items"].([]any)
		return arr, ok
	}},
	{ShapeDataArray, func(raw any, _ string) ([]any, bool) {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		arr, ok := obj["data"].([]any)
		return arr, ok
	}},
	{ShapeKeyed, func(raw any, key string) ([]any, bool) {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		arr, ok := obj[key].([]any)
		return arr, ok
	}},
	{ShapeBare, func(raw any, _ string) ([]any, bool) {
		arr, ok := raw.([]any)
		return arr, ok
	}},
	{ShapeScan, func(raw any, _ string) ([]any, bool) {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		scope := obj
		if inner, ok := obj["data"].(map[string]any); ok {
			scope = inner
		}
		// Keys are probed in sorted order so a payload with several
		// candidate arrays extracts the same one on every call.
		keys := make([]string, 0, len(scope))
		for k := range scope {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if arr, ok := scope[k].([]any); ok {
				return arr, true
			}
		}
		return nil, false
	}},
}

// Extract returns the entity objects for the plural resource key, trying
// each wrapper convention in priority order. It never fails: an
// unrecognizable payload yields an empty slice and ShapeNone, and the
// caller decides whether that means "no data" or "fetch failed".
func Extract(raw any, key string) ([]map[string]any, Shape) {
	for _, m := range listMatchers {
		if arr, ok := m.match(raw, key); ok {
			return objects(arr), m.shape
		}
	}
	return []map[string]any{}, ShapeNone
}

// ExtractOne returns a single entity object, probing data.<key>, data
// itself, <key>, then the payload itself. An object qualifies as an entity
// when it carries an identity discriminant.
func ExtractOne(raw any, key string) (map[string]any, Shape) {
	obj, isObj := raw.(map[string]any)
	if isObj {
		if inner, ok := obj["data"].(map[string]any); ok {
			if ent, ok := inner[key].(map[string]any); ok {
				return ent, ShapeDataKeyed
			}
			if isEntity(inner) {
				return inner, ShapeDataArray
			}
		}
		if ent, ok := obj[key].(map[string]any); ok {
			return ent, ShapeKeyed
		}
		if isEntity(obj) {
			return obj, ShapeBare
		}
	}
	return nil, ShapeNone
}

// ExtractJSON decodes a response body and extracts the entity list.
func ExtractJSON(body []byte, key string) ([]map[string]any, Shape) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return []map[string]any{}, ShapeNone
	}
	return Extract(raw, key)
}

// ExtractOneJSON decodes a response body and extracts a single entity.
func ExtractOneJSON(body []byte, key string) (map[string]any, Shape) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ShapeNone
	}
	return ExtractOne(raw, key)
}

func isEntity(obj map[string]any) bool {
	for _, d := range discriminants {
		if _, ok := obj[d]; ok {
			return true
		}
	}
	return false
}

func objects(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if obj, ok := v.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
