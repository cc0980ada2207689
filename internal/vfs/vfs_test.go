package vfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decoyd/internal/logger"
)

func init() {
	logger.InitDefault()
}

func TestReadsTemplateDataLayer(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, DataDirName)
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "index.html"), []byte("<html/>"), 0644))

	v, err := Initialize(root)
	require.NoError(t, err)

	data, err := v.ReadFile("index.html")
	require.NoError(t, err)
	assert.Equal(t, "<html/>", string(data))
}

func TestWritesStayInMemory(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, DataDirName)
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "motd"), []byte("hello"), 0644))

	v, err := Initialize(root)
	require.NoError(t, err)

	require.NoError(t, v.WriteFile("motd", []byte("owned")))
	require.NoError(t, v.WriteFile("dropped.bin", []byte{0x90}))

	data, err := v.ReadFile("motd")
	require.NoError(t, err)
	assert.Equal(t, "owned", string(data))

	// The overlay absorbed both writes; the disk layer is untouched.
	onDisk, err := os.ReadFile(filepath.Join(dataDir, "motd"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(onDisk))
	_, err = os.Stat(filepath.Join(dataDir, "dropped.bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestInitializeWithoutDataDir(t *testing.T) {
	v, err := Initialize(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, v.WriteFile("scratch", []byte("x")))
	data, err := v.ReadFile("scratch")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestList(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, DataDirName)
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "b.txt"), []byte("b"), 0644))

	v, err := Initialize(root)
	require.NoError(t, err)

	names, err := v.List("/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
}

func TestCloseIsIdempotent(t *testing.T) {
	v, err := Initialize(t.TempDir())
	require.NoError(t, err)

	v.Close()
	v.Close()

	// After close the handle no longer accepts writes.
	assert.Error(t, v.WriteFile("late", []byte("x")))
}
