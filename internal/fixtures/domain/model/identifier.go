package model

import (
	"fmt"
	"regexp"

	sharederrors "mongo-fixtures/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var canonicalIdentifier = regexp.MustCompile(`^[0-9a-f]{24}$`)

// NewIdentifier creates a document identifier for fixture authors.
//
//   - nil returns a freshly generated identifier.
//   - a primitive.ObjectID (or a non-nil pointer to one) returns an equal copy.
//   - a string is parsed as the canonical 24 character lowercase hex form.
//
// Any other input fails with ErrInvalidArgumentType.
func NewIdentifier(input interface{}) (primitive.ObjectID, error) {
	switch v := input.(type) {
	case nil:
		return primitive.NewObjectID(), nil
	case primitive.ObjectID:
		return v, nil
	case *primitive.ObjectID:
		if v == nil {
			return primitive.NilObjectID, fmt.Errorf("%w: nil *ObjectID", sharederrors.ErrInvalidArgumentType)
		}
		return *v, nil
	case string:
		return ParseIdentifier(v)
	default:
		return primitive.NilObjectID, fmt.Errorf("%w: cannot build an identifier from %T",
			sharederrors.ErrInvalidArgumentType, input)
	}
}

// ParseIdentifier parses the canonical string form of an identifier.
func ParseIdentifier(s string) (primitive.ObjectID, error) {
	if !canonicalIdentifier.MatchString(s) {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", sharederrors.ErrInvalidIdentifierFormat, s)
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q: %v", sharederrors.ErrInvalidIdentifierFormat, s, err)
	}
	return id, nil
}

// MustIdentifier is ParseIdentifier for identifier literals in fixture code; it panics on bad input.
func MustIdentifier(s string) primitive.ObjectID {
	id, err := ParseIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}
