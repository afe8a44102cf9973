package cache

import (
	"fmt"
	"reflect"
	"strings"
)

// Key joins prefix and params with ":", skipping nil params. Equal inputs yield equal keys.
func Key(prefix string, params ...any) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, prefix)
	for _, p := range params {
		if isNil(p) {
			continue
		}
		if rv := reflect.ValueOf(p); rv.Kind() == reflect.Pointer {
			p = rv.Elem().Interface()
		}
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ":")
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
