package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/artsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/artsync/internal/connectors/filesystem"
	"github.com/custodia-labs/artsync/internal/core/domain"
)

func build(t *testing.T) *cli.Services {
	t.Helper()
	return buildAt(t, t.TempDir())
}

func buildAt(t *testing.T, root string) *cli.Services {
	t.Helper()
	s, err := Build(cli.Options{
		ConfigDir: filepath.Join(root, "config"),
		DataDir:   filepath.Join(root, "data"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func TestBuild(t *testing.T) {
	s := build(t)

	assert.NotNil(t, s.Manager)
	assert.NotNil(t, s.Providers)
	assert.NotNil(t, s.Listeners)
	assert.NotNil(t, s.Settings)
	assert.NotNil(t, s.Status)
	assert.NotNil(t, s.Loader)
	assert.NotNil(t, s.Daemon)
	assert.Equal(t, domain.DefaultDebounce, s.Settings.DebounceDelay())
}

func TestBuild_StatusWithoutProvider(t *testing.T) {
	s := build(t)

	st, err := s.Status.Status(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st.Provider)
	assert.Nil(t, st.Artwork)
}

func TestBuild_LoadNextWithoutProvider(t *testing.T) {
	s := build(t)

	assert.Equal(t, domain.ResultFail, s.Loader.LoadNext(context.Background()))
}

func TestBuild_SelectAndLoad(t *testing.T) {
	s := build(t)
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"))

	provider, err := s.Providers.Select(context.Background(), "gallery", filesystem.ContentURI(dir))
	require.NoError(t, err)
	assert.Equal(t, "gallery", provider.ID)

	assert.Equal(t, domain.ResultSuccess, s.Loader.LoadNext(context.Background()))

	st, err := s.Status.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.Artwork)
	assert.Equal(t, "a.png", st.Artwork.ID)
}

func TestDaemon_RunUntilCancelled(t *testing.T) {
	s := build(t)

	for _, observe := range []bool{false, true} {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Daemon.Run(ctx, observe) }()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatalf("daemon did not stop (observe=%t)", observe)
		}
	}
}

func TestDaemon_ObservingDropsListenerArmedElsewhere(t *testing.T) {
	root := t.TempDir()
	daemon := buildAt(t, root)
	oneShot := buildAt(t, root)
	daemon.Daemon.(*Daemon).pollInterval = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- daemon.Daemon.Run(ctx, true) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"))
	_, err := oneShot.Providers.Select(context.Background(), "gallery", filesystem.ContentURI(dir))
	require.NoError(t, err)
	require.NoError(t, oneShot.Listeners.AddRequester(context.Background(), "lockscreen"))

	require.Eventually(t, func() bool {
		st, err := daemon.Status.Status(context.Background())
		return err == nil && countTag(st.Jobs, domain.TagPersistentChanged) == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestResolveDirs(t *testing.T) {
	configDir, dataDir, err := resolveDirs(cli.Options{ConfigDir: "/c", DataDir: "/d"})
	require.NoError(t, err)
	assert.Equal(t, "/c", configDir)
	assert.Equal(t, "/d", dataDir)

	t.Setenv("HOME", "/home/test")
	configDir, dataDir, err = resolveDirs(cli.Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/test", ".artsync"), configDir)
	assert.Equal(t, filepath.Join("/home/test", ".artsync", "data"), dataDir)
}
