package modifiers

import (
	"context"
	"fmt"
	"strings"

	"mongo-fixtures/internal/fixtures/domain/model"

	"golang.org/x/crypto/bcrypt"
)

// HashField replaces a plain text string in field by its bcrypt hash.
// Values that already look like bcrypt hashes are left alone; cost 0 means bcrypt.DefaultCost.
func HashField(field string, cost int) model.Modifier {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return func(_ context.Context, _ string, doc model.Document) (model.Document, error) {
		value, ok := doc[field]
		if !ok || value == nil {
			return doc, nil
		}
		plain, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: expected a string, got %T", field, value)
		}
		if isBcryptHash(plain) {
			return doc, nil
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		doc[field] = string(hashed)
		return doc, nil
	}
}

func isBcryptHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
