package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// ResourceInfo describes a fixture path.
type ResourceInfo struct {
	Path  string
	IsDir bool
}

// ResourceEntry is one entry directly inside a fixture directory.
type ResourceEntry struct {
	Name  string
	IsDir bool
}

// ResourceLoader reads fixture resources from storage.
type ResourceLoader interface {
	// Stat fails with errors.ErrResourceNotFound when path does not exist.
	Stat(path string) (ResourceInfo, error)
	// ListEntries lists the direct children of a directory in enumeration order.
	ListEntries(path string) ([]ResourceEntry, error)
	// Supports reports whether LoadExports understands the resource at path.
	Supports(path string) bool
	// LoadExports returns the top-level mapping of collection name to batch source,
	// in the order the resource declares it. A resource whose top level is not a
	// mapping fails with errors.ErrInvalidFixtureShape.
	LoadExports(ctx context.Context, path string) (bson.D, error)
}
