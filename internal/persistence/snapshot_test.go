package persistence

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"voxelworld/internal/world"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generatedStore(t *testing.T, seed int64) *world.ChunkStore {
	t.Helper()
	cs := world.NewChunkStore(world.NewGenerator(seed, nil, world.DefaultTerrainParams()), nil)
	for x := -1; x <= 1; x++ {
		_, err := cs.LoadColumn(world.ColumnCoord{X: x, Z: 2})
		require.NoError(t, err)
	}
	return cs
}

func TestSnapshotRoundTrip(t *testing.T) {
	cs := generatedStore(t, 21)
	require.NoError(t, cs.SetVoxel(3, 100, 40, world.BlockTypeGlass))
	snap := NewSnapshot(21, cs.ExportColumns())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, snap))

	hdr, err := ReadHeader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, Version, hdr.Version)
	assert.Equal(t, int64(21), hdr.Seed)
	assert.Equal(t, 3, hdr.Columns)

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap.Seed, got.Seed)
	assert.True(t, snap.Header.SavedAt.Equal(got.Header.SavedAt))
	assert.Equal(t, snap.Columns, got.Columns)

	// Restoring into a fresh store reproduces every voxel
	fresh := world.NewChunkStore(world.NewGenerator(got.Seed, nil, world.DefaultTerrainParams()), nil)
	require.NoError(t, fresh.RestoreColumns(got.Columns))
	assert.Equal(t, world.BlockTypeGlass, fresh.GetVoxel(3, 100, 40))
	assert.Equal(t, cs.ExportColumns(), fresh.ExportColumns())
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	cs := generatedStore(t, 5)
	path := filepath.Join(t.TempDir(), "saves", "world.snap")
	require.NoError(t, WriteFile(path, NewSnapshot(5, cs.ExportColumns())))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")

	snap, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, snap.Columns, 3)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.snap"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSnapshotShapeMismatchSurfaces(t *testing.T) {
	cs := generatedStore(t, 5)
	cols := cs.ExportColumns()
	cols[1].Height = 256
	cols[1].Blocks = append(cols[1].Blocks, make([]world.BlockType, world.ColumnVolume)...)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, NewSnapshot(5, cols)))
	snap, err := Read(&buf)
	require.NoError(t, err, "decoding does not validate shapes")

	err = cs.RestoreColumns(snap.Columns)
	require.ErrorIs(t, err, world.ErrShapeMismatch)
	assert.Equal(t, 3, cs.Len(), "a rejected restore must leave the store untouched")
}

func TestSnapshotRejectsUnknownVersion(t *testing.T) {
	snap := NewSnapshot(1, nil)
	snap.Header.Version = 99
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, snap))

	_, err := Read(&buf)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestSnapshotRejectsGarbage(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not a snapshot")))
	assert.Error(t, err)

	// Valid zstd frame without a header line
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte("{}"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	_, err = Read(&buf)
	assert.Error(t, err)
}
