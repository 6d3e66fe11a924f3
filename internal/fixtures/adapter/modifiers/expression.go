package modifiers

import (
	"context"
	"fmt"
	"time"

	"mongo-fixtures/internal/fixtures/domain/model"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Expression variables
const (
	varCollection = "collection"
	varDoc        = "doc"
	varNow        = "now"
)

var celEnv = mustExpressionEnv()

func mustExpressionEnv() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable(varCollection, cel.StringType),
		cel.Variable(varDoc, cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable(varNow, cel.TimestampType),
	)
	if err != nil {
		panic(fmt.Sprintf("modifiers: building CEL environment: %v", err))
	}
	return env
}

// Expression sets field to the result of a CEL expression evaluated for every document.
//
// The expression sees `collection` (string), `doc` (the document so far, ObjectIDs as
// hex strings) and `now` (timestamp). Example: `doc.first + " " + doc.last`.
func Expression(field, expr string) (model.Modifier, error) {
	ast, issues := celEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error in %q: %w", expr, issues.Err())
	}
	program, err := celEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return func(_ context.Context, collection string, doc model.Document) (model.Document, error) {
		out, _, err := program.Eval(map[string]interface{}{
			varCollection: collection,
			varDoc:        plainDocument(doc),
			varNow:        time.Now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("CEL evaluation error for field %q: %w", field, err)
		}
		doc[field] = nativeValue(out)
		return doc, nil
	}, nil
}

// plainDocument converts driver types into values the CEL type adapter understands.
func plainDocument(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v interface{}) interface{} {
	switch val := v.(type) {
	case model.Document:
		return plainDocument(val)
	case primitive.M:
		return plainDocument(val)
	case map[string]interface{}:
		return plainDocument(val)
	case primitive.D:
		m := make(map[string]interface{}, len(val))
		for _, e := range val {
			m[e.Key] = plainValue(e.Value)
		}
		return m
	case primitive.A:
		return plainList(val)
	case []interface{}:
		return plainList(val)
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case int32:
		return int64(val)
	case int:
		return int64(val)
	default:
		return v
	}
}

func plainList(values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = plainValue(v)
	}
	return out
}

// nativeValue converts a CEL result into a value the bson encoder accepts.
func nativeValue(val ref.Val) interface{} {
	if val == nil || val.Type() == types.NullType {
		return nil
	}
	switch v := val.(type) {
	case traits.Lister:
		n, _ := v.Size().Value().(int64)
		out := make(primitive.A, 0, n)
		for i := int64(0); i < n; i++ {
			out = append(out, nativeValue(v.Get(types.Int(i))))
		}
		return out
	case traits.Mapper:
		out := make(model.Document)
		it := v.Iterator()
		for it.HasNext() == types.True {
			key := it.Next()
			out[fmt.Sprint(key.Value())] = nativeValue(v.Get(key))
		}
		return out
	}
	return val.Value()
}
