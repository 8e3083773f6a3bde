package tools

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/chatmodel"
	"github.com/effective-security/mcpagent/pkg/schema"
)

// funcTool adapts a typed Go function into a Tool.
type funcTool[I any, O any] struct {
	name        string
	description string
	funcParams  any
	fn          func(context.Context, *I) (*O, error)
}

// NewTool builds a typed tool from a function. The input schema is
// reflected from I using its jsonschema struct tags.
func NewTool[I any, O any](name, description string, fn func(context.Context, *I) (*O, error)) (Tool[I, O], error) {
	sc, err := schema.New(reflect.TypeOf(new(I)).Elem())
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to reflect schema for tool %q", name)
	}
	return &funcTool[I, O]{
		name:        name,
		description: description,
		funcParams:  sc.Parameters,
		fn:          fn,
	}, nil
}

// MustNewTool is like NewTool but panics on schema reflection errors.
// Use for tools declared at package level.
func MustNewTool[I any, O any](name, description string, fn func(context.Context, *I) (*O, error)) Tool[I, O] {
	t, err := NewTool(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *funcTool[I, O]) Name() string {
	return t.name
}

func (t *funcTool[I, O]) Description() string {
	return t.description
}

func (t *funcTool[I, O]) Parameters() any {
	return t.funcParams
}

func (t *funcTool[I, O]) Call(ctx context.Context, input string) (string, error) {
	var req I
	if input != "" {
		if err := json.Unmarshal([]byte(input), &req); err != nil {
			return "", errors.Wrapf(err, "failed to unmarshal input for tool %q: check the schema and try again", t.name)
		}
	}
	res, err := t.fn(ctx, &req)
	if err != nil {
		return "", err
	}
	return chatmodel.Stringify(res), nil
}

func (t *funcTool[I, O]) Run(ctx context.Context, req *I) (*O, error) {
	return t.fn(ctx, req)
}
