// Package modifiers holds the built-in document modifiers of the fixture loader.
package modifiers

import (
	"context"
	"time"

	"mongo-fixtures/internal/fixtures/domain/model"
)

// Clock returns the current time
type Clock func() time.Time

// Timestamps sets createdField and updatedField on documents that do not carry them.
// updatedField defaults to the value of createdField. An empty field name is skipped.
// Times are UTC and truncated to milliseconds, the precision MongoDB stores.
func Timestamps(createdField, updatedField string, clock Clock) model.Modifier {
	if clock == nil {
		clock = time.Now
	}
	return func(_ context.Context, _ string, doc model.Document) (model.Document, error) {
		now := clock().UTC().Truncate(time.Millisecond)
		created := now
		if createdField != "" {
			if existing, ok := doc[createdField]; ok {
				if t, isTime := existing.(time.Time); isTime {
					created = t
				}
			} else {
				doc[createdField] = now
			}
		}
		if updatedField != "" {
			if _, ok := doc[updatedField]; !ok {
				doc[updatedField] = created
			}
		}
		return doc, nil
	}
}
