package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mongo-fixtures/internal/fixtures/domain/repository"
	sharederrors "mongo-fixtures/internal/shared/errors"
	"mongo-fixtures/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
)

// Supported fixture file extensions
const (
	ExtJSON = ".json"
	ExtYAML = ".yaml"
	ExtYML  = ".yml"
)

// ResourceLoader reads fixture files from the local filesystem.
// .json files hold MongoDB Extended JSON, .yaml/.yml files plain YAML.
type ResourceLoader struct {
	logger logger.Logger
}

// NewResourceLoader creates a filesystem resource loader
func NewResourceLoader(log logger.Logger) *ResourceLoader {
	return &ResourceLoader{logger: logger.OrNop(log).WithComponent("filesystem")}
}

var _ repository.ResourceLoader = (*ResourceLoader)(nil)

func (l *ResourceLoader) Stat(path string) (repository.ResourceInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return repository.ResourceInfo{}, fmt.Errorf("%w: %s", sharederrors.ErrResourceNotFound, path)
		}
		return repository.ResourceInfo{}, fmt.Errorf("%w: %s: %w", sharederrors.ErrResourceNotFound, path, err)
	}
	return repository.ResourceInfo{Path: path, IsDir: info.IsDir()}, nil
}

// ListEntries returns the entries of dir sorted by file name
func (l *ResourceLoader) ListEntries(dir string) ([]repository.ResourceEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sharederrors.ErrResourceNotFound, dir, err)
	}
	out := make([]repository.ResourceEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, repository.ResourceEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return out, nil
}

func (l *ResourceLoader) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtJSON, ExtYAML, ExtYML:
		return true
	}
	return false
}

func (l *ResourceLoader) LoadExports(ctx context.Context, path string) (bson.D, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", sharederrors.ErrResourceNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", sharederrors.ErrResourceNotFound, path, err)
	}

	var exports bson.D
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtJSON:
		exports, err = decodeExtJSON(data)
	case ExtYAML, ExtYML:
		exports, err = decodeYAML(data)
	default:
		err = fmt.Errorf("%w: unsupported fixture file type", sharederrors.ErrInvalidFixtureShape)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.logger.WithContext(ctx).Debugf("Loaded %d collections from %s", len(exports), path)
	return exports, nil
}

// decodeExtJSON accepts canonical and relaxed Extended JSON whose top level is an object.
func decodeExtJSON(data []byte) (bson.D, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: top level must be an object", sharederrors.ErrInvalidFixtureShape)
	}
	var exports bson.D
	if err := bson.UnmarshalExtJSON(trimmed, false, &exports); err != nil {
		return nil, fmt.Errorf("%w: %w", sharederrors.ErrInvalidFixtureShape, err)
	}
	return exports, nil
}
