package types

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation_SameBlock(t *testing.T) {
	base := Location{World: "w", X: 10.2, Y: 64, Z: -3.7}

	t.Run("sub-block movement", func(t *testing.T) {
		assert.True(t, base.SameBlock(Location{World: "w", X: 10.9, Y: 64.5, Z: -3.1}))
	})
	t.Run("negative coordinates floor", func(t *testing.T) {
		// -3.7 and -4.0 are both in cell -4
		assert.True(t, base.SameBlock(Location{World: "w", X: 10, Y: 64, Z: -4}))
		assert.False(t, base.SameBlock(Location{World: "w", X: 10, Y: 64, Z: -2.9}))
	})
	t.Run("other world", func(t *testing.T) {
		assert.False(t, base.SameBlock(Location{World: "nether", X: 10.2, Y: 64, Z: -3.7}))
	})
}

func TestCenterOf(t *testing.T) {
	loc := CenterOf("w", BlockPos{X: -5, Y: 70, Z: 3})
	assert.Equal(t, Location{World: "w", X: -4.5, Y: 70, Z: 3.5}, loc)
	assert.Equal(t, BlockPos{X: -5, Y: 70, Z: 3}, loc.Block())
}

func TestPhase(t *testing.T) {
	for _, p := range []Phase{PhaseCompleted, PhaseCancelled, PhaseFailed} {
		assert.True(t, p.IsTerminal(), p)
		assert.False(t, p.IsCancellable(), p)
	}
	for _, p := range []Phase{PhaseCooldownCheck, PhaseFundsCheck, PhaseCounting, PhaseSearching} {
		assert.False(t, p.IsTerminal(), p)
		assert.True(t, p.IsCancellable(), p)
	}
	assert.False(t, PhaseRelocating.IsCancellable())
}

func TestCauseFor(t *testing.T) {
	cause, ok := CauseFor(ActivityDeath)
	require.True(t, ok)
	assert.Equal(t, CauseDeath, cause)

	for _, a := range []Activity{ActivityDamage, ActivityInteract, ActivityInventory, ActivityAttack, ActivityCommand, ActivityLook, ActivityPortal, ActivityWorldChange} {
		_, ok := CauseFor(a)
		assert.False(t, ok, a)
	}
}

func TestError(t *testing.T) {
	inner := errors.New("boom")
	err := NewError(http.StatusConflict, AlreadyPending, inner)

	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, inner)

	var typed *Error
	require.ErrorAs(t, error(err), &typed)
	assert.Equal(t, AlreadyPending, typed.ErrorCode)
}
