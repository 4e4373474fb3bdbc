package jsonobj

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// nullJSON is the token used for bodies that are absent, empty or unparsable
const nullJSON = "null"

// Object wraps one parsed JSON value. It is never mutated after construction,
// so an Object may be shared between goroutines.
type Object struct {
	res gjson.Result
}

// Parse wraps a raw response body. Empty or invalid JSON yields a null Object.
func Parse(body []byte) *Object {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
		return Null()
	}
	return &Object{res: gjson.ParseBytes(trimmed)}
}

// ParseString is Parse for string input.
func ParseString(s string) *Object {
	return Parse([]byte(s))
}

// Null returns an Object wrapping the JSON null token.
func Null() *Object {
	return &Object{res: gjson.Parse(nullJSON)}
}

func (o *Object) result() gjson.Result {
	if o == nil {
		return gjson.Result{}
	}
	return o.res
}

// field looks up a literal key on the wrapped object. Keys are compared
// verbatim, so "a.b" is a single key rather than a path.
func (o *Object) field(id string) gjson.Result {
	res := o.result()
	if !res.IsObject() {
		return gjson.Result{}
	}

	var found gjson.Result
	res.ForEach(func(key, value gjson.Result) bool {
		if key.Str == id {
			found = value
			return false
		}
		return true
	})
	return found
}

// Int returns the integer value of field id, or 0.
func (o *Object) Int(id string) int {
	return o.IntOr(id, 0)
}

// IntOr returns the integer value of field id, or def when the field is
// missing or not a number. Fractional numbers are truncated toward zero.
func (o *Object) IntOr(id string, def int) int {
	if v, ok := o.NullableInt(id); ok {
		return v
	}
	return def
}

// NullableInt returns the integer value of field id and whether it was present.
func (o *Object) NullableInt(id string) (int, bool) {
	f := o.field(id)
	if f.Type != gjson.Number {
		return 0, false
	}
	return int(f.Int()), true
}

// String returns the string value of field id, or "".
func (o *Object) String(id string) string {
	return o.StringOr(id, "")
}

// StringOr returns the string value of field id, or def when the field is
// missing or not a string.
func (o *Object) StringOr(id, def string) string {
	if v, ok := o.NullableString(id); ok {
		return v
	}
	return def
}

// NullableString returns the string value of field id and whether it was present.
func (o *Object) NullableString(id string) (string, bool) {
	f := o.field(id)
	if f.Type != gjson.String {
		return "", false
	}
	return f.Str, true
}

// NullableNotEmptyString is NullableString with "" reported as absent.
func (o *Object) NullableNotEmptyString(id string) (string, bool) {
	v, ok := o.NullableString(id)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Bool returns the boolean value of field id, or false.
func (o *Object) Bool(id string) bool {
	return o.BoolOr(id, false)
}

// BoolOr returns the boolean value of field id, or def when the field is
// missing or not true/false.
func (o *Object) BoolOr(id string, def bool) bool {
	if v, ok := o.NullableBool(id); ok {
		return v
	}
	return def
}

// NullableBool returns the boolean value of field id and whether it was present.
func (o *Object) NullableBool(id string) (bool, bool) {
	f := o.field(id)
	switch f.Type {
	case gjson.True:
		return true, true
	case gjson.False:
		return false, true
	default:
		return false, false
	}
}

// Object returns a view over field id. It never fails: a missing or
// non-object field yields an Object whose reads all return defaults.
func (o *Object) Object(id string) *Object {
	return &Object{res: o.field(id)}
}

// Get is shorthand for Object.
func (o *Object) Get(id string) *Object {
	return o.Object(id)
}

// NullableObject returns a view over field id only when it is a JSON object.
func (o *Object) NullableObject(id string) (*Object, bool) {
	f := o.field(id)
	if !f.IsObject() {
		return nil, false
	}
	return &Object{res: f}, true
}

// Array returns one view per element of field id, in source order. A missing
// or non-array field yields an empty slice.
func (o *Object) Array(id string) []*Object {
	f := o.field(id)
	if !f.IsArray() {
		return []*Object{}
	}
	elems := f.Array()
	out := make([]*Object, 0, len(elems))
	for _, e := range elems {
		out = append(out, &Object{res: e})
	}
	return out
}

// Elements returns one view per element when the wrapped value itself is an
// array, or nil otherwise.
func (o *Object) Elements() []*Object {
	res := o.result()
	if !res.IsArray() {
		return nil
	}
	elems := res.Array()
	out := make([]*Object, 0, len(elems))
	for _, e := range elems {
		out = append(out, &Object{res: e})
	}
	return out
}

// Exists reports whether the Object wraps a value (including an explicit null).
func (o *Object) Exists() bool {
	return o.result().Exists()
}

// IsNull reports whether the Object wraps null or nothing at all.
func (o *Object) IsNull() bool {
	return o.result().Type == gjson.Null
}

// IsObject reports whether the wrapped value is a JSON object.
func (o *Object) IsObject() bool {
	return o.result().IsObject()
}

// IsArray reports whether the wrapped value is a JSON array.
func (o *Object) IsArray() bool {
	return o.result().IsArray()
}

// Keys returns the object's keys in source order.
func (o *Object) Keys() []string {
	res := o.result()
	if !res.IsObject() {
		return nil
	}
	var keys []string
	res.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.Str)
		return true
	})
	return keys
}

// Value returns the wrapped value decoded into Go types
// (map[string]any, []any, float64, string, bool or nil).
func (o *Object) Value() any {
	return o.result().Value()
}

// Raw returns the compact JSON text of the wrapped value, "null" when empty.
func (o *Object) Raw() string {
	raw := strings.TrimSpace(o.result().Raw)
	if raw == "" {
		return nullJSON
	}
	return raw
}

// Pretty returns the wrapped value as indented JSON.
func (o *Object) Pretty() string {
	raw := o.Raw()
	return strings.TrimRight(string(pretty.Pretty([]byte(raw))), "\n")
}
