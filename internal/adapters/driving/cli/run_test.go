package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	d := &MockDaemon{}

	_, err := executeCommand(t, &Services{Daemon: d}, "run")

	require.NoError(t, err)
	assert.Equal(t, []bool{false}, d.observe)
}

func TestRun_Observe(t *testing.T) {
	d := &MockDaemon{}

	_, err := executeCommand(t, &Services{Daemon: d}, "run", "--observe")

	require.NoError(t, err)
	assert.Equal(t, []bool{true}, d.observe)
}

func TestRun_Error(t *testing.T) {
	d := &MockDaemon{err: errors.New("database is locked")}

	_, err := executeCommand(t, &Services{Daemon: d}, "run")

	assert.EqualError(t, err, "database is locked")
}

func TestRun_NoDaemon(t *testing.T) {
	_, err := executeCommand(t, &Services{}, "run")

	assert.ErrorIs(t, err, errNotConfigured)
}
