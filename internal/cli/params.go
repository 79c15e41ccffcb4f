package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/sproc/internal/params"
)

// splitQualified splits "schema.procedure". Both parts are required; there
// is no default schema.
func splitQualified(name string) (schema, procedure string, err error) {
	schema, procedure, ok := strings.Cut(name, ".")
	if !ok || schema == "" || procedure == "" {
		return "", "", fmt.Errorf("expected schema.procedure, got %q", name)
	}
	return schema, procedure, nil
}

// parseParam parses "name:type=value". Without "=value" the parameter binds
// NULL.
func parseParam(s string) (params.Param, error) {
	decl, raw, hasValue := strings.Cut(s, "=")
	name, typ, ok := strings.Cut(decl, ":")
	if !ok || name == "" {
		return params.Param{}, fmt.Errorf("expected name:type=value, got %q", s)
	}

	t := params.Type(typ)
	if !t.Valid() {
		return params.Param{}, fmt.Errorf("parameter %s: unknown type %q (valid: %v)", name, typ, params.ValidTypes)
	}
	if !hasValue {
		return params.Param{Name: name, Type: t}, nil
	}

	v, err := params.ParseValue(t, raw)
	if err != nil {
		return params.Param{}, fmt.Errorf("parameter %s: %w", name, err)
	}
	return params.Param{Name: name, Type: t, Value: v}, nil
}
