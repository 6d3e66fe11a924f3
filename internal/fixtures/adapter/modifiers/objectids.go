package modifiers

import (
	"context"
	"fmt"

	"mongo-fixtures/internal/fixtures/domain/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectIDs converts hex strings in fields, or arrays of them, to ObjectIDs.
// With no fields it converts _id. Values that are already ObjectIDs are kept.
func ObjectIDs(fields ...string) model.Modifier {
	if len(fields) == 0 {
		fields = []string{model.IDField}
	}
	return func(_ context.Context, _ string, doc model.Document) (model.Document, error) {
		for _, field := range fields {
			value, ok := doc[field]
			if !ok || value == nil {
				continue
			}
			converted, err := toObjectID(value)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", field, err)
			}
			doc[field] = converted
		}
		return doc, nil
	}
}

func toObjectID(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v, nil
	case string:
		return model.ParseIdentifier(v)
	case []interface{}:
		return convertAll(v)
	case primitive.A:
		out, err := convertAll(v)
		return primitive.A(out), err
	case []string:
		out := make(primitive.A, len(v))
		for i, s := range v {
			id, err := model.ParseIdentifier(s)
			if err != nil {
				return nil, err
			}
			out[i] = id
		}
		return out, nil
	default:
		return model.NewIdentifier(value)
	}
}

func convertAll(values []interface{}) ([]interface{}, error) {
	out := make([]interface{}, len(values))
	for i, v := range values {
		id, err := toObjectID(v)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}
