package testutil

import (
	"fmt"

	"mongo-fixtures/internal/fixtures/domain/model"
)

// Docs builds n documents named prefix-1 .. prefix-n
func Docs(prefix string, n int) []model.Document {
	docs := make([]model.Document, n)
	for i := range docs {
		docs[i] = model.Document{"name": fmt.Sprintf("%s-%d", prefix, i+1)}
	}
	return docs
}

// SeedCartoons fills archer and southpark with three documents each
func SeedCartoons(s *MemoryStore) *MemoryStore {
	return s.
		Seed("archer", Docs("archer", 3)...).
		Seed("southpark", Docs("southpark", 3)...)
}

// Names returns the name field of every document
func Names(docs []model.Document) []string {
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i], _ = d["name"].(string)
	}
	return names
}
