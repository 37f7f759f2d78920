// Package attr resolves logical fields out of loosely-schematized attribute bags.
//
// The same semantic value (node type, pole tag, company) is stored under
// different keys depending on how it was captured. A Field lists the known
// locations as ordered Paths; the first path that resolves to a non-null value
// wins and later paths are never consulted.
package attr

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Any is a path segment that selects the first child of an object (or the
// first element of an array) in payload order.
const Any = "*"

// Path is one candidate location for a value: a sequence of object keys,
// array indices, or Any.
type Path []string

// P builds a Path from its segments.
func P(segments ...string) Path { return Path(segments) }

// String renders the path in dotted form for logging.
func (p Path) String() string { return strings.Join(p, ".") }

// Lookup walks path through bag. It reports false when any segment is
// missing or when the final value is JSON null.
func Lookup(bag gjson.Result, path Path) (gjson.Result, bool) {
	cur := bag
	for _, seg := range path {
		next, ok := step(cur, seg)
		if !ok {
			return gjson.Result{}, false
		}
		cur = next
	}
	if !cur.Exists() || cur.Type == gjson.Null {
		return gjson.Result{}, false
	}
	return cur, true
}

func step(cur gjson.Result, seg string) (gjson.Result, bool) {
	switch {
	case cur.IsObject():
		if seg == Any {
			var first gjson.Result
			found := false
			cur.ForEach(func(_, v gjson.Result) bool {
				first, found = v, true
				return false
			})
			return first, found
		}
		v := cur.Get(gjson.Escape(seg))
		return v, v.Exists()
	case cur.IsArray():
		arr := cur.Array()
		if seg == Any {
			if len(arr) == 0 {
				return gjson.Result{}, false
			}
			return arr[0], true
		}
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(arr) {
			return gjson.Result{}, false
		}
		return arr[i], true
	default:
		return gjson.Result{}, false
	}
}

// Resolve evaluates paths in order and returns the value of the first one that
// resolves to a non-null value. ok is false when none do.
func Resolve(bag gjson.Result, paths []Path) (value gjson.Result, ok bool) {
	for _, p := range paths {
		if v, found := Lookup(bag, p); found {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// ResolveOr is Resolve with a default returned when no path resolves.
func ResolveOr(bag gjson.Result, paths []Path, def gjson.Result) gjson.Result {
	if v, ok := Resolve(bag, paths); ok {
		return v
	}
	return def
}

// isScalar reports whether v is a string, number, or boolean.
func isScalar(v gjson.Result) bool {
	switch v.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return true
	default:
		return false
	}
}

// Field is one logical attribute and the ordered places it may be stored.
type Field struct {
	Name  string
	Paths []Path
}

// NewField declares a field.
func NewField(name string, paths ...Path) Field {
	return Field{Name: name, Paths: paths}
}

// Value returns the first non-null value for f.
func (f Field) Value(bag gjson.Result) (gjson.Result, bool) {
	return Resolve(bag, f.Paths)
}

// Present reports whether any path of f resolves to a non-null value.
func (f Field) Present(bag gjson.Result) bool {
	_, ok := Resolve(bag, f.Paths)
	return ok
}

// String returns the first path that yields a scalar, rendered as a trimmed
// string. This is narrower than Resolve, where the first non-null path wins
// whatever its type: String passes over object and array values so a later,
// flatter encoding can still match. Value and Present keep the Resolve rule.
func (f Field) String(bag gjson.Result, def string) string {
	for _, p := range f.Paths {
		v, ok := Lookup(bag, p)
		if !ok || !isScalar(v) {
			continue
		}
		return strings.TrimSpace(v.String())
	}
	return def
}

// Float returns the first path that yields a number or a numeric string.
func (f Field) Float(bag gjson.Result) (float64, bool) {
	for _, p := range f.Paths {
		v, ok := Lookup(bag, p)
		if !ok {
			continue
		}
		switch v.Type {
		case gjson.Number:
			return v.Num, true
		case gjson.String:
			n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// Truthy reports whether the first resolved value of f is "set": true, a
// non-zero number, a non-empty string other than "false"/"0", or a non-empty
// object or array.
func (f Field) Truthy(bag gjson.Result) bool {
	v, ok := Resolve(bag, f.Paths)
	if !ok {
		return false
	}
	return Truthy(v)
}

// Truthy applies the Field.Truthy rules to a single value.
func Truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.False, gjson.Null:
		return false
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		s := strings.ToLower(strings.TrimSpace(v.Str))
		return s != "" && s != "false" && s != "0" && s != "no"
	case gjson.JSON:
		empty := true
		v.ForEach(func(_, _ gjson.Result) bool {
			empty = false
			return false
		})
		return !empty
	default:
		return false
	}
}
