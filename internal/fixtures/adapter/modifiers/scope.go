package modifiers

import (
	"context"

	"mongo-fixtures/internal/fixtures/domain/model"
)

// ForCollections restricts m to the named collections. Documents of other collections pass through unchanged.
func ForCollections(m model.Modifier, collections ...string) model.Modifier {
	allowed := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		allowed[c] = struct{}{}
	}
	return func(ctx context.Context, collection string, doc model.Document) (model.Document, error) {
		if _, ok := allowed[collection]; !ok {
			return doc, nil
		}
		return m(ctx, collection, doc)
	}
}
