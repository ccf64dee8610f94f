package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns returns the "db" tag of every field of T in declaration
// order, descending into embedded structs. Fields tagged "-" are skipped.
//
//	cols := ExtractDBColumns[ledger_repo.productRow]()
//	// ["id", "code", "name", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	return fieldsOf(reflect.TypeOf(zero)).columns
}

type fieldPath struct {
	index  []int
	column string
}

type typeFields struct {
	columns []string
	paths   []fieldPath
}

var typeCache sync.Map // map[reflect.Type]*typeFields

func fieldsOf(t reflect.Type) *typeFields {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeFields)
	}
	tf := &typeFields{}
	if t.Kind() == reflect.Struct {
		collectFields(t, nil, tf)
	}
	typeCache.Store(t, tf)
	return tf
}

func collectFields(t reflect.Type, prefix []int, tf *typeFields) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collectFields(f.Type, index, tf)
			continue
		}
		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		tf.columns = append(tf.columns, tag)
		tf.paths = append(tf.paths, fieldPath{index: index, column: tag})
	}
}

// StructToMap maps "db" tags to field values, for squirrel SetMap.
// Type metadata is computed once per type.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	tf := fieldsOf(rv.Type())
	res := make(map[string]any, len(tf.paths))
	for _, p := range tf.paths {
		res[p.column] = rv.FieldByIndex(p.index).Interface()
	}
	return res
}
