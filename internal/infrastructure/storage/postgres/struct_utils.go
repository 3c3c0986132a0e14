package postgres

import (
	"reflect"
	"sync"
)

// column maps a "db" tag to the field index path that holds it.
type column struct {
	name  string
	index []int
}

var columnCache sync.Map // map[reflect.Type][]column

// columnsOf walks t, flattening embedded structs such as entity.Catalog.
// The result is cached per type.
func columnsOf(t reflect.Type) []column {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]column)
	}

	var cols []column
	var walk func(t reflect.Type, prefix []int)
	walk = func(t reflect.Type, prefix []int) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			path := append(append([]int(nil), prefix...), i)
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				walk(f.Type, path)
				continue
			}
			tag := f.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			cols = append(cols, column{name: tag, index: path})
		}
	}
	if t.Kind() == reflect.Struct {
		walk(t, nil)
	}

	columnCache.Store(t, cols)
	return cols
}

// ExtractDBColumns returns the column names of T in declaration order.
//
//	cols := ExtractDBColumns[product.Product]()
//	// ["id", "version", "created_at", "updated_at", "name", ..., "sku", ...]
func ExtractDBColumns[T any]() []string {
	cols := columnsOf(reflect.TypeOf((*T)(nil)).Elem())
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// StructToMap converts a struct (or pointer to one) to a column map.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	cols := columnsOf(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		res[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return res
}

// StructToMapCols is StructToMap restricted to cols.
func StructToMapCols(v any, cols []string) map[string]any {
	all := StructToMap(v)
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		if val, ok := all[c]; ok {
			res[c] = val
		}
	}
	return res
}
