package reindex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_HappyPath(t *testing.T) {
	m := newMachine(false)
	require.NoError(t, m.to(StateBackedUp))
	require.NoError(t, m.to(StateCommitting))
	require.NoError(t, m.to(StateDone))

	assert.Equal(t, StateDone, m.current())
	assert.Equal(t, []State{StateNotStarted, StateBackedUp, StateCommitting, StateDone}, m.history())
}

func TestMachine_NoCommitWithoutBackup(t *testing.T) {
	m := newMachine(false)
	err := m.to(StateCommitting)

	var stateErr *StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, StateNotStarted, stateErr.From)
	assert.Equal(t, StateCommitting, stateErr.To)
	assert.Equal(t, StateNotStarted, m.current())
}

func TestMachine_AbortIsTerminal(t *testing.T) {
	m := newMachine(false)
	require.NoError(t, m.to(StateAborted))
	assert.Error(t, m.to(StateBackedUp))
	assert.Error(t, m.to(StateDone))
}

func TestMachine_DryRunSkipsBackup(t *testing.T) {
	m := newMachine(true)
	assert.Error(t, m.to(StateCommitting))
	assert.Error(t, m.to(StateBackedUp))
	require.NoError(t, m.to(StateDone))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "NotStarted", StateNotStarted.String())
	assert.Equal(t, "Committing", StateCommitting.String())
	assert.Equal(t, "Unknown", State(42).String())
}
