package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mongo-fixtures/internal/fixtures/adapter/filesystem"
	"mongo-fixtures/internal/fixtures/domain/model"
	"mongo-fixtures/internal/fixtures/domain/repository"
	"mongo-fixtures/internal/fixtures/testutil"
	"mongo-fixtures/internal/fixtures/usecase"
	sharederrors "mongo-fixtures/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newResolver(baseDir string) *usecase.Resolver {
	return usecase.NewResolver(filesystem.NewResourceLoader(nil), baseDir, nil)
}

func TestResolver_Classify(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "users.json", `{"users": []}`)
	r := newResolver(dir)

	src, err := r.Classify(map[string]interface{}{"a": []interface{}{}})
	require.NoError(t, err)
	assert.Equal(t, model.InlineMapping, src.Kind)

	src, err = r.Classify("users.json")
	require.NoError(t, err)
	assert.Equal(t, model.FilePath, src.Kind)
	assert.Equal(t, filepath.Join(dir, "users.json"), src.Path)

	src, err = r.Classify(dir)
	require.NoError(t, err)
	assert.Equal(t, model.DirectoryPath, src.Kind)

	for _, input := range []interface{}{nil, 42, []interface{}{}, "", struct{}{}} {
		_, err := r.Classify(input)
		assert.True(t, errors.Is(err, sharederrors.ErrUnsupportedFixtureInput), "input %#v: %v", input, err)
	}
}

func TestResolver_InlineSequenceKeepsOrder(t *testing.T) {
	doc1 := map[string]interface{}{"name": "doc1"}
	doc2 := map[string]interface{}{"name": "doc2"}

	set, err := newResolver("").Resolve(context.Background(), map[string]interface{}{
		"a": []interface{}{doc1, doc2},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1", "doc2"}, testutil.Names(set["a"]))
}

func TestResolver_InlineKeyedMapping(t *testing.T) {
	set, err := newResolver("").Resolve(context.Background(), bson.M{
		"a": map[string]interface{}{
			"k2": map[string]interface{}{"name": "doc2"},
			"k1": map[string]interface{}{"name": "doc1"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1", "doc2"}, testutil.Names(set["a"]))
}

func TestResolver_OrderedMappingKeepsDeclaredOrder(t *testing.T) {
	set, err := newResolver("").Resolve(context.Background(), bson.D{
		{Key: "a", Value: bson.D{
			{Key: "zed", Value: bson.M{"name": "first"}},
			{Key: "abe", Value: bson.M{"name": "second"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, testutil.Names(set["a"]))
}

func TestResolver_InlineInputIsCopied(t *testing.T) {
	input := model.FixtureSet{"a": {{"name": "original"}}}

	set, err := newResolver("").Resolve(context.Background(), input)
	require.NoError(t, err)
	set["a"][0]["name"] = "changed"

	assert.Equal(t, "original", input["a"][0]["name"])
}

func TestResolver_InvalidInlineShape(t *testing.T) {
	_, err := newResolver("").Resolve(context.Background(), map[string]interface{}{"a": 42})
	assert.True(t, errors.Is(err, sharederrors.ErrInvalidFixtureShape))
}

func TestResolver_SingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "cartoons.yaml", "southpark:\n  - name: Kyle\n  - name: Stan\n")

	set, err := newResolver(dir).Resolve(context.Background(), "cartoons.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"Kyle", "Stan"}, testutil.Names(set["southpark"]))
}

func TestResolver_AbsolutePathIgnoresBaseDir(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.json", `{"a": [{"name": "x"}]}`)

	set, err := newResolver("/does/not/matter").Resolve(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, set["a"], 1)
}

func TestResolver_DirectoryMerge(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "one.json", `{"southpark": [{"name": "docA"}]}`)
	writeFixture(t, dir, "two.yaml", "southpark:\n  - name: docB\narcher: []\n")
	writeFixture(t, dir, "notes.txt", "not a fixture")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	writeFixture(t, filepath.Join(dir, "nested"), "deep.json", `{"southpark": [{"name": "deep"}]}`)

	set, err := newResolver("").Resolve(context.Background(), dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"docA", "docB"}, testutil.Names(set["southpark"]))
	assert.Contains(t, set, "archer")
	assert.Empty(t, set["archer"])
}

func TestResolver_DirectoryWithBadFileFails(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "good.json", `{"a": []}`)
	writeFixture(t, dir, "bad.json", `[1, 2]`)

	_, err := newResolver("").Resolve(context.Background(), dir)
	assert.True(t, errors.Is(err, sharederrors.ErrInvalidFixtureShape))
}

func TestResolver_Failures(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "fixtures.js", "module.exports = {}")

	_, err := newResolver(dir).Resolve(context.Background(), "missing.json")
	assert.True(t, errors.Is(err, sharederrors.ErrResourceNotFound))

	_, err = newResolver(dir).Resolve(context.Background(), "fixtures.js")
	assert.True(t, errors.Is(err, sharederrors.ErrInvalidFixtureShape))
}

func TestResolver_UsesResourceLoaderPort(t *testing.T) {
	resources := &testutil.MockResourceLoader{}
	resources.On("Stat", "/fixtures").Return(repository.ResourceInfo{Path: "/fixtures", IsDir: true}, nil)
	resources.On("ListEntries", "/fixtures").Return([]repository.ResourceEntry{
		{Name: "b.json"}, {Name: "sub", IsDir: true}, {Name: "a.json"},
	}, nil)
	resources.On("Supports", mock.Anything).Return(true)
	resources.On("LoadExports", mock.Anything, "/fixtures/b.json").
		Return(bson.D{{Key: "c", Value: bson.A{bson.M{"name": "from-b"}}}}, nil)
	resources.On("LoadExports", mock.Anything, "/fixtures/a.json").
		Return(bson.D{{Key: "c", Value: bson.A{bson.M{"name": "from-a"}}}}, nil)

	set, err := usecase.NewResolver(resources, "", nil).Resolve(context.Background(), "/fixtures")
	require.NoError(t, err)
	assert.Equal(t, []string{"from-b", "from-a"}, testutil.Names(set["c"]), "batches concatenate in enumeration order")
	resources.AssertNotCalled(t, "LoadExports", mock.Anything, "/fixtures/sub")
	resources.AssertExpectations(t)
}
