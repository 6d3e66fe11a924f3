package usecase

import (
	"context"
	"fmt"
	"path/filepath"

	"mongo-fixtures/internal/fixtures/domain/model"
	"mongo-fixtures/internal/fixtures/domain/repository"
	sharederrors "mongo-fixtures/internal/shared/errors"
	"mongo-fixtures/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
)

// Resolver turns fixture inputs into FixtureSets.
type Resolver struct {
	// BaseDir anchors relative paths. Empty means the process working directory.
	BaseDir   string
	resources repository.ResourceLoader
	logger    logger.Logger
}

// NewResolver creates a resolver reading files through resources
func NewResolver(resources repository.ResourceLoader, baseDir string, log logger.Logger) *Resolver {
	return &Resolver{
		BaseDir:   baseDir,
		resources: resources,
		logger:    logger.OrNop(log).WithComponent("resolver"),
	}
}

// Resolve classifies input and produces its FixtureSet.
//
// Accepted inputs are model.FixtureSet, model.FixtureSource, map[string]interface{},
// bson.M, bson.D and a string path. Inline documents are copied, so modifiers never
// change the caller's data.
func (r *Resolver) Resolve(ctx context.Context, input interface{}) (model.FixtureSet, error) {
	src, err := r.Classify(input)
	if err != nil {
		return nil, err
	}
	return r.ResolveSource(ctx, src)
}

// Classify decides once how input is resolved. String paths are made absolute and
// inspected, so a missing path fails here with ErrResourceNotFound.
func (r *Resolver) Classify(input interface{}) (model.FixtureSource, error) {
	switch v := input.(type) {
	case model.FixtureSource:
		return v, nil
	case *model.FixtureSource:
		if v == nil {
			break
		}
		return *v, nil
	case model.FixtureSet:
		return model.FixtureSource{Kind: model.InlineMapping, Inline: v.Clone()}, nil
	case map[string]interface{}:
		return inlineSource(model.NewFixtureSetFromMap(v))
	case bson.M:
		return inlineSource(model.NewFixtureSetFromMap(v))
	case model.Document:
		return inlineSource(model.NewFixtureSetFromMap(v))
	case bson.D:
		return inlineSource(model.NewFixtureSet(v))
	case string:
		return r.classifyPath(v)
	}
	return model.FixtureSource{}, fmt.Errorf("%w: %T", sharederrors.ErrUnsupportedFixtureInput, input)
}

func inlineSource(set model.FixtureSet, err error) (model.FixtureSource, error) {
	if err != nil {
		return model.FixtureSource{}, err
	}
	return model.FixtureSource{Kind: model.InlineMapping, Inline: set.Clone()}, nil
}

func (r *Resolver) classifyPath(path string) (model.FixtureSource, error) {
	if path == "" {
		return model.FixtureSource{}, fmt.Errorf("%w: empty path", sharederrors.ErrUnsupportedFixtureInput)
	}
	abs, err := r.absPath(path)
	if err != nil {
		return model.FixtureSource{}, err
	}
	info, err := r.resources.Stat(abs)
	if err != nil {
		return model.FixtureSource{}, err
	}
	kind := model.FilePath
	if info.IsDir {
		kind = model.DirectoryPath
	}
	return model.FixtureSource{Kind: kind, Path: abs}, nil
}

func (r *Resolver) absPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if r.BaseDir != "" {
		return filepath.Join(r.BaseDir, path), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", sharederrors.ErrResourceNotFound, path, err)
	}
	return abs, nil
}

// ResolveSource produces the FixtureSet of an already classified input
func (r *Resolver) ResolveSource(ctx context.Context, src model.FixtureSource) (model.FixtureSet, error) {
	switch src.Kind {
	case model.InlineMapping:
		if src.Inline == nil {
			return model.FixtureSet{}, nil
		}
		return src.Inline, nil
	case model.FilePath:
		return r.loadFile(ctx, src.Path)
	case model.DirectoryPath:
		return r.loadDirectory(ctx, src.Path)
	default:
		return nil, fmt.Errorf("%w: %s", sharederrors.ErrUnsupportedFixtureInput, src.Kind)
	}
}

func (r *Resolver) loadFile(ctx context.Context, path string) (model.FixtureSet, error) {
	if !r.resources.Supports(path) {
		return nil, fmt.Errorf("%w: %s: unsupported fixture file type", sharederrors.ErrInvalidFixtureShape, path)
	}
	exports, err := r.resources.LoadExports(ctx, path)
	if err != nil {
		return nil, err
	}
	set, err := model.NewFixtureSet(exports)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"path":        path,
		"collections": len(set),
		"documents":   set.DocumentCount(),
	}).Debug("Fixture file resolved")
	return set, nil
}

// loadDirectory merges every supported file directly inside dir, in enumeration order.
func (r *Resolver) loadDirectory(ctx context.Context, dir string) (model.FixtureSet, error) {
	entries, err := r.resources.ListEntries(dir)
	if err != nil {
		return nil, err
	}

	merged := model.FixtureSet{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, entry.Name)
		if entry.IsDir {
			r.logger.Debugf("Skipping subdirectory %s", path)
			continue
		}
		if !r.resources.Supports(path) {
			r.logger.Debugf("Skipping unsupported fixture file %s", path)
			continue
		}
		set, err := r.loadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		merged.Merge(set)
	}
	return merged, nil
}
