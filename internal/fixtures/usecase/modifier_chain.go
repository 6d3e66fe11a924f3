package usecase

import (
	"context"
	"fmt"
	"sync"

	"mongo-fixtures/internal/fixtures/domain/model"
	sharederrors "mongo-fixtures/internal/shared/errors"
)

// ModifierChain applies registered modifiers in registration order.
// Registration while a load is running is not supported.
type ModifierChain struct {
	mu        sync.RWMutex
	modifiers []model.Modifier
}

// NewModifierChain creates a chain holding mods
func NewModifierChain(mods ...model.Modifier) *ModifierChain {
	c := &ModifierChain{}
	for _, m := range mods {
		c.Add(m)
	}
	return c
}

// Add registers m after every modifier already registered. A nil modifier is ignored.
func (c *ModifierChain) Add(m model.Modifier) {
	if m == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modifiers = append(c.modifiers, m)
}

// Len returns the number of registered modifiers
func (c *ModifierChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.modifiers)
}

// Apply runs doc through every modifier once, feeding each one the previous output.
func (c *ModifierChain) Apply(ctx context.Context, collection string, doc model.Document) (model.Document, error) {
	c.mu.RLock()
	mods := c.modifiers
	c.mu.RUnlock()

	for i, m := range mods {
		out, err := m(ctx, collection, doc)
		if err != nil {
			return nil, fmt.Errorf("%w: modifier #%d on collection %q: %w", sharederrors.ErrModifier, i+1, collection, err)
		}
		if out == nil {
			return nil, fmt.Errorf("%w: modifier #%d on collection %q returned no document", sharederrors.ErrModifier, i+1, collection)
		}
		doc = out
	}
	return doc, nil
}

// ApplyBatch runs every document of batch through the chain, one document at a time.
func (c *ModifierChain) ApplyBatch(ctx context.Context, collection string, batch model.DocumentBatch) (model.DocumentBatch, error) {
	out := make(model.DocumentBatch, 0, len(batch))
	for _, doc := range batch {
		modified, err := c.Apply(ctx, collection, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, modified)
	}
	return out, nil
}
