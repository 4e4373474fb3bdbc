package api

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
)

// Params are request parameters. Values may be scalars, slices or string-keyed
// maps: slices encode as repeated "key[]" pairs and maps as "key[sub]".
type Params map[string]any

// Values encodes the parameters as a query. Keys are sorted by url.Values.
func (p Params) Values() url.Values {
	values := url.Values{}
	for key, v := range p {
		encodeParam(values, key, v)
	}
	return values
}

// Clone returns a deep copy of slices, maps and pointers so a retried request
// cannot observe caller mutations made after the first attempt.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		if v == nil {
			out[k] = nil
			continue
		}
		out[k] = cloneValue(reflect.ValueOf(v)).Interface()
	}
	return out
}

func cloneValue(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneValue(rv.Index(i)))
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type().Elem())
		out.Elem().Set(cloneValue(rv.Elem()))
		return out
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(cloneValue(rv.Elem()))
		return out
	}
	return rv
}

func encodeParam(values url.Values, key string, v any) {
	switch val := v.(type) {
	case nil:
		values.Add(key, "")
		return
	case string:
		values.Add(key, val)
		return
	case []byte:
		values.Add(key, string(val))
		return
	case bool:
		values.Add(key, strconv.FormatBool(val))
		return
	case fmt.Stringer:
		values.Add(key, val.String())
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			encodeParam(values, key+"[]", rv.Index(i).Interface())
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			values.Add(key, fmt.Sprint(v))
			return
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		for _, k := range keys {
			encodeParam(values, key+"["+k+"]", rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
		}
	case reflect.Pointer:
		if rv.IsNil() {
			values.Add(key, "")
			return
		}
		encodeParam(values, key, rv.Elem().Interface())
	default:
		values.Add(key, fmt.Sprint(v))
	}
}
