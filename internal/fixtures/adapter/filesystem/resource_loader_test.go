package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mongo-fixtures/internal/fixtures/domain/model"
	sharederrors "mongo-fixtures/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResourceLoader_Stat(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.json", `{}`)
	l := NewResourceLoader(nil)

	info, err := l.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir)

	info, err = l.Stat(file)
	require.NoError(t, err)
	assert.False(t, info.IsDir)
	assert.Equal(t, file, info.Path)

	_, err = l.Stat(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, sharederrors.ErrResourceNotFound))
}

func TestResourceLoader_ListEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "x: []")
	writeFile(t, dir, "a.json", "{}")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	entries, err := NewResourceLoader(nil).ListEntries(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.json", entries[0].Name)
	assert.Equal(t, "b.yaml", entries[1].Name)
	assert.Equal(t, "nested", entries[2].Name)
	assert.True(t, entries[2].IsDir)
}

func TestResourceLoader_Supports(t *testing.T) {
	l := NewResourceLoader(nil)
	assert.True(t, l.Supports("users.json"))
	assert.True(t, l.Supports("users.YAML"))
	assert.True(t, l.Supports("users.yml"))
	assert.False(t, l.Supports("users.js"))
	assert.False(t, l.Supports("README"))
}

func TestResourceLoader_LoadExtJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "users.json", `{
		"users": [
			{"_id": {"$oid": "5f1d7c2e9b1e8a3d4c2b1a00"}, "name": "Sterling"},
			{"name": "Lana", "age": 32}
		],
		"shows": {"first": {"title": "Archer"}, "second": {"title": "South Park"}}
	}`)

	exports, err := NewResourceLoader(nil).LoadExports(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, exports, 2)
	assert.Equal(t, "users", exports[0].Key)
	assert.Equal(t, "shows", exports[1].Key)

	set, err := model.NewFixtureSet(exports)
	require.NoError(t, err)
	require.Len(t, set["users"], 2)
	assert.Equal(t, model.MustIdentifier("5f1d7c2e9b1e8a3d4c2b1a00"), set["users"][0]["_id"])
	assert.Equal(t, "Lana", set["users"][1]["name"])
	require.Len(t, set["shows"], 2)
	assert.Equal(t, "Archer", set["shows"][0]["title"])
	assert.Equal(t, "South Park", set["shows"][1]["title"])
}

func TestResourceLoader_LoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cartoons.yml", `
southpark:
  kyle:
    _id: !oid 5f1d7c2e9b1e8a3d4c2b1a01
    name: Kyle
    friends: [Stan, Kenny]
  cartman:
    name: Eric
archer:
  - name: Sterling
    tags:
      agent: true
`)

	exports, err := NewResourceLoader(nil).LoadExports(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, exports, 2)
	assert.Equal(t, "southpark", exports[0].Key)

	set, err := model.NewFixtureSet(exports)
	require.NoError(t, err)
	require.Len(t, set["southpark"], 2)
	assert.Equal(t, "Kyle", set["southpark"][0]["name"], "mapping order is kept")
	assert.Equal(t, model.MustIdentifier("5f1d7c2e9b1e8a3d4c2b1a01"), set["southpark"][0]["_id"])
	assert.Equal(t, bson.A{"Stan", "Kenny"}, set["southpark"][0]["friends"])
	assert.Equal(t, "Eric", set["southpark"][1]["name"])

	require.Len(t, set["archer"], 1)
	assert.Equal(t, primitive.D{{Key: "agent", Value: true}}, set["archer"][0]["tags"])
}

func TestResourceLoader_AliasesResolve(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "aliases.yaml", `
archer:
  - &spy
    name: Sterling
  - *spy
`)
	exports, err := NewResourceLoader(nil).LoadExports(context.Background(), path)
	require.NoError(t, err)
	set, err := model.NewFixtureSet(exports)
	require.NoError(t, err)
	require.Len(t, set["archer"], 2)
	assert.Equal(t, "Sterling", set["archer"][1]["name"])
}

func TestResourceLoader_InvalidShapes(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json array", "a.json", `[{"name": "x"}]`},
		{"json scalar", "b.json", `42`},
		{"json malformed", "c.json", `{"users": [`},
		{"yaml sequence", "d.yaml", "- name: x\n"},
		{"yaml empty", "e.yaml", ""},
		{"yaml bad oid", "f.yaml", "users:\n  - _id: !oid nothex\n"},
	}
	l := NewResourceLoader(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := l.LoadExports(context.Background(), path)
			require.Error(t, err)
			assert.True(t,
				errors.Is(err, sharederrors.ErrInvalidFixtureShape) || errors.Is(err, sharederrors.ErrInvalidIdentifierFormat),
				"unexpected error: %v", err)
		})
	}
}

func TestResourceLoader_MissingFile(t *testing.T) {
	_, err := NewResourceLoader(nil).LoadExports(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, sharederrors.ErrResourceNotFound))
}

func TestResourceLoader_CancelledContext(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.json", `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResourceLoader(nil).LoadExports(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
