package media

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForFilename(t *testing.T) {
	tests := []struct {
		name     string
		wantKind Kind
		wantOK   bool
	}{
		{"song.mp3", KindAudio, true},
		{"take.WAV", KindAudio, true},
		{"clip.mp4", KindVideo, true},
		{"screen.mkv", KindVideo, true},
		{"/abs/path/to/shot.Mov", KindVideo, true},
		{"frame.png", KindImage, true},
		{"photo.JPEG", KindImage, true},
		{"notes.txt", "", false},
		{"archive.tar.gz", "", false},
		{"noextension", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := KindForFilename(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestKnownExtension(t *testing.T) {
	assert.True(t, KnownExtension("mp3"))
	assert.True(t, KnownExtension("WEBM"))
	assert.False(t, KnownExtension("exe"))
	assert.False(t, KnownExtension(""))
}

func TestAllowedExtensionsSorted(t *testing.T) {
	exts := AllowedExtensions()
	require.NotEmpty(t, exts)
	assert.True(t, sort.StringsAreSorted(exts))
	assert.Contains(t, exts, "mp4")
	assert.Contains(t, exts, "flac")
	assert.Contains(t, exts, "webp")
}

func TestStoreImport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	store, err := NewStore(filepath.Join(dir, "scratch"))
	require.NoError(t, err)

	art, err := store.Import(path)
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", art.Filename)
	assert.Equal(t, KindVideo, art.Kind)
	assert.True(t, filepath.IsAbs(art.Location))
	assert.Equal(t, art.Location, store.ResolvePath(art))
}

func TestStoreImportRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	store, err := NewStore(filepath.Join(dir, "scratch"))
	require.NoError(t, err)

	_, err = store.Import(path)
	var unknown *ErrUnknownType
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "notes.txt", unknown.Filename)
}

func TestStoreImportRejectsMissingAndDirectory(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "scratch"))
	require.NoError(t, err)

	_, err = store.Import(filepath.Join(dir, "nope.mp4"))
	assert.Error(t, err)

	sub := filepath.Join(dir, "folder.mp4")
	require.NoError(t, os.Mkdir(sub, 0o755))
	_, err = store.Import(sub)
	assert.Error(t, err)
}

func TestStoreFreshTempPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	a := store.FreshTempPath("mp3")
	b := store.FreshTempPath("mp3")
	assert.NotEqual(t, a, b)
	assert.Equal(t, ".mp3", filepath.Ext(a))
	assert.Equal(t, dir, filepath.Dir(a))

	bare := store.FreshTempPath("")
	assert.Empty(t, filepath.Ext(bare))
}

func TestStoreAdopt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	path := store.FreshTempPath("mp3")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))

	art, err := store.Adopt(path, "clip.mp3")
	require.NoError(t, err)
	assert.Equal(t, "clip.mp3", art.Filename)
	assert.Equal(t, KindAudio, art.Kind)
	assert.Equal(t, path, art.Location)

	// Without a display name the basename is used.
	art, err = store.Adopt(path, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(path), art.Filename)
}

func TestStoreDiscard(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	path := store.FreshTempPath("wav")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	store.Discard(path)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// Missing files and empty paths are silently ignored.
	store.Discard(path)
	store.Discard("")
}
