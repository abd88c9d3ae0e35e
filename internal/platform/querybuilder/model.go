package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
)

func InsertModel(table string, model any, suffix string) (string, []any, error) {
	cols, vals, err := columnsAndValuesFromModel(model)
	if err != nil {
		return "", nil, err
	}
	return InsertInto(table).
		Columns(cols...).
		Values(vals...).
		Suffix(suffix).
		ToSQL()
}

// UpsertModel inserts model and on conflict with conflictTarget overwrites
// every non-conflict column. Extra suffix (e.g. RETURNING) is appended.
func UpsertModel(table string, model any, conflictTarget []string, suffix string) (string, []any, error) {
	cols, vals, err := columnsAndValuesFromModel(model)
	if err != nil {
		return "", nil, err
	}
	if len(conflictTarget) == 0 {
		return "", nil, fmt.Errorf("upsert conflict target is required")
	}

	skip := make(map[string]struct{}, len(conflictTarget))
	for _, col := range conflictTarget {
		skip[col] = struct{}{}
	}
	sets := make([]string, 0, len(cols))
	for _, col := range cols {
		if _, ok := skip[col]; ok {
			continue
		}
		sets = append(sets, col+" = EXCLUDED."+col)
	}

	clause := "ON CONFLICT (" + strings.Join(conflictTarget, ", ") + ")"
	if len(sets) == 0 {
		clause += " DO NOTHING"
	} else {
		clause += " DO UPDATE SET " + strings.Join(sets, ", ")
	}
	if suffix = strings.TrimSpace(suffix); suffix != "" {
		clause += " " + suffix
	}

	return InsertInto(table).
		Columns(cols...).
		Values(vals...).
		Suffix(clause).
		ToSQL()
}

func columnsAndValuesFromModel(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be struct")
	}

	typ := value.Type()
	cols := make([]string, 0, typ.NumField())
	vals := make([]any, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.PkgPath != "" {
			continue
		}
		tag := strings.TrimSpace(field.Tag.Get("db"))
		if tag == "" || tag == "-" {
			continue
		}
		col := strings.TrimSpace(strings.Split(tag, ",")[0])
		if col == "" || col == "-" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, value.Field(i).Interface())
	}

	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("model has no db columns")
	}
	return cols, vals, nil
}
