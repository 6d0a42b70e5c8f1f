package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".artsync", "config.toml"), store.Path())
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	nestedPath := filepath.Join(t.TempDir(), "nested", "deep")

	store, err := NewConfigStore(nestedPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(nestedPath, "config.toml"), store.Path())

	info, err := os.Stat(nestedPath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not valid TOML {{{[["), 0600))

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("sync.load_frequency_seconds", int64(900)))
	require.NoError(t, store.Set("sync.load_on_wifi", true))
	require.NoError(t, store.Set("sync.persistent_listeners", []string{"daemon", "widget"}))
	require.NoError(t, store.Set("name", "artsync"))

	assert.Equal(t, 900, store.GetInt("sync.load_frequency_seconds"))
	assert.True(t, store.GetBool("sync.load_on_wifi"))
	assert.Equal(t, []string{"daemon", "widget"}, store.GetStringSlice("sync.persistent_listeners"))
	assert.Equal(t, "artsync", store.GetString("name"))

	// Wrong types fall back to zero values.
	assert.Equal(t, "", store.GetString("sync.load_on_wifi"))
	assert.Equal(t, 0, store.GetInt("name"))
	assert.False(t, store.GetBool("name"))
	assert.Nil(t, store.GetStringSlice("name"))

	val, ok := store.Get("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("sync.load_frequency_seconds", int64(3600)))
	require.NoError(t, store.Set("sync.persistent_listeners", []string{"daemon"}))
	require.NoError(t, store.Set("scheduler.max_backoff_seconds", 120))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[sync]")
	assert.Contains(t, string(raw), "[scheduler]")

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 3600, reloaded.GetInt("sync.load_frequency_seconds"))
	assert.Equal(t, []string{"daemon"}, reloaded.GetStringSlice("sync.persistent_listeners"))
	assert.Equal(t, 120, reloaded.GetInt("scheduler.max_backoff_seconds"))
	assert.Equal(t,
		[]string{"scheduler.max_backoff_seconds", "sync.load_frequency_seconds", "sync.persistent_listeners"},
		reloaded.Keys())
}

func TestConfigStore_PicksUpExternalWrites(t *testing.T) {
	tmpDir := t.TempDir()
	daemon, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, daemon.Set("sync.load_on_wifi", false))

	cli, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, cli.Set("sync.load_on_wifi", true))

	// Make sure the modification time moves even on coarse filesystems.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(cli.Path(), future, future))

	assert.True(t, daemon.GetBool("sync.load_on_wifi"))
}

func TestConfigStore_ExternalCorruptionKeepsValues(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("sync.load_on_wifi", true))

	require.NoError(t, os.WriteFile(store.Path(), []byte("invalid toml ][}{"), 0600))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(store.Path(), future, future))

	assert.True(t, store.GetBool("sync.load_on_wifi"))
	assert.Error(t, store.Load())
}

func TestConfigStore_ReturnedSlicesAreCopies(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	names := []string{"a", "b"}
	require.NoError(t, store.Set("sync.persistent_listeners", names))
	names[0] = "mutated"

	got := store.GetStringSlice("sync.persistent_listeners")
	assert.Equal(t, []string{"a", "b"}, got)
	got[1] = "mutated"
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("sync.persistent_listeners"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("test", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("# Just a comment\n\n"), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	val, ok := store.Get("any_key")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_Save_Explicit(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	store.mu.Lock()
	store.data["manual.key"] = "manual_value"
	store.mu.Unlock()

	require.NoError(t, store.Save())

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "manual_value", store2.GetString("manual.key"))
}

func TestConfigStore_Save_WriteError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("test", "value"))

	// Replace the file with a directory so the rename fails.
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Set("channel", make(chan int)))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := "key" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.GetString(key)
			_, _ = store.Get(key)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestFlattenAndNestMap(t *testing.T) {
	flat := map[string]any{"a.b": 1, "a.c": "x", "d": true}

	nested := nestMap(flat)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": 1, "c": "x"}, "d": true}, nested)
	assert.Equal(t, flat, flattenMap(nested, ""))
}
