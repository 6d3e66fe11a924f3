package model

import "context"

// Modifier transforms one document before insertion. The returned document replaces
// the input for every later modifier. A non-nil error aborts the load.
type Modifier func(ctx context.Context, collection string, doc Document) (Document, error)

// ModifierFunc adapts a modifier that cannot fail.
func ModifierFunc(fn func(collection string, doc Document) Document) Modifier {
	return func(_ context.Context, collection string, doc Document) (Document, error) {
		return fn(collection, doc), nil
	}
}
