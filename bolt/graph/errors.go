package graph

import "fmt"

func typeErrorf(field string, got interface{}) error {
	return fmt.Errorf("graph: %s: unexpected type %T", field, got)
}

func fieldCountErrorf(structName string, want, got int) error {
	return fmt.Errorf("graph: %s: expected %d fields, got %d", structName, want, got)
}
