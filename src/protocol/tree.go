package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// Generic template trees. Wrapper documents are arbitrary nested JSON; they
// are handled as a tagged tree (map / slice / string / float64 / bool / nil)
// with explicit deep-copy and two interpolation passes: ${var} at load time,
// {{var}} at send time.
// -----------------------------------------------------------------------------

// Tree is a parsed JSON document node.
type Tree = interface{}

var (
	loadVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)
	fillVarPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)
	pathSegPattern = regexp.MustCompile(`^([^\[\]]+)(?:\[(\d+)\])?$`)
)

// DeepCopy returns a structurally independent copy of the node.
func DeepCopy(node Tree) Tree {
	switch n := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, v := range n {
			out[k] = DeepCopy(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, v := range n {
			out[i] = DeepCopy(v)
		}
		return out
	default:
		return n
	}
}

// Interpolate substitutes ${key} placeholders from vars in every string leaf.
// A missing key becomes the empty string. Returns a new tree.
func Interpolate(node Tree, vars map[string]string) Tree {
	return mapStrings(node, func(s string) string {
		return loadVarPattern.ReplaceAllStringFunc(s, func(m string) string {
			key := loadVarPattern.FindStringSubmatch(m)[1]
			return vars[key]
		})
	})
}

// Fill substitutes {{key}} placeholders from ctx in every string leaf.
// Unmatched placeholders are left verbatim. Returns a new tree.
func Fill(node Tree, ctx map[string]string) Tree {
	return mapStrings(node, func(s string) string {
		return fillVarPattern.ReplaceAllStringFunc(s, func(m string) string {
			key := fillVarPattern.FindStringSubmatch(m)[1]
			if v, ok := ctx[key]; ok {
				return v
			}
			return m
		})
	})
}

func mapStrings(node Tree, fn func(string) string) Tree {
	switch n := node.(type) {
	case string:
		return fn(n)
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, v := range n {
			out[i] = mapStrings(v, fn)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, v := range n {
			out[k] = mapStrings(v, fn)
		}
		return out
	default:
		return n
	}
}

// -----------------------------------------------------------------------------
// Dotted-path access. Segments may carry one index suffix: "p.ob[0].i".
// -----------------------------------------------------------------------------

// GetPath resolves a dotted path against the tree.
func GetPath(node Tree, dotPath string) (Tree, bool) {
	if node == nil || dotPath == "" {
		return nil, false
	}
	cur := node
	for _, part := range strings.Split(dotPath, ".") {
		m := pathSegPattern.FindStringSubmatch(part)
		if m == nil {
			return nil, false
		}
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = obj[m[1]]
		if !ok || cur == nil {
			return nil, false
		}
		if m[2] != "" {
			idx, _ := strconv.Atoi(m[2])
			arr, ok := cur.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		}
	}
	return cur, true
}

// SetPath assigns value at a dotted path (no index segments), creating
// intermediate objects as needed. The root must be an object.
func SetPath(node Tree, dotPath string, value Tree) {
	obj, ok := node.(map[string]interface{})
	if !ok {
		return
	}
	parts := strings.Split(dotPath, ".")
	for _, k := range parts[:len(parts)-1] {
		next, ok := obj[k].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			obj[k] = next
		}
		obj = next
	}
	obj[parts[len(parts)-1]] = value
}

// -----------------------------------------------------------------------------
// Leaf coercion helpers.
// -----------------------------------------------------------------------------

// Number reads a node as float64.
func Number(node Tree) (float64, bool) {
	f, ok := node.(float64)
	return f, ok
}

// String reads a node as string.
func String(node Tree) (string, bool) {
	s, ok := node.(string)
	return s, ok
}
