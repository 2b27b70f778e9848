package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_UnknownTypeReturnsNil(t *testing.T) {
	assert.Nil(t, Sequence(Type("spin_sideways"), 50))
}

func TestSequence_SpinLeftTurnsLeftAtCommandedSpeed(t *testing.T) {
	steps := Sequence(SpinLeft, 60)
	require.Len(t, steps, 1)
	assert.Equal(t, -60, steps[0].X)
	assert.Equal(t, 0, steps[0].Y)
}

func TestSequence_SpinRightTurnsRightAtCommandedSpeed(t *testing.T) {
	steps := Sequence(SpinRight, 60)
	require.Len(t, steps, 1)
	assert.Equal(t, 60, steps[0].X)
}

func TestSequence_Spin360TakesFourTimesTheQuarterTurn(t *testing.T) {
	spin90 := Sequence(SpinLeft, 50)[0].Duration
	spin360 := Sequence(Spin360, 50)[0].Duration
	assert.Equal(t, 4*spin90, spin360)
}

func TestSequence_WiggleAlternatesDirection(t *testing.T) {
	steps := Sequence(Wiggle, 80)
	require.Len(t, steps, 3)
	assert.Negative(t, steps[0].X)
	assert.Positive(t, steps[1].X)
	assert.Negative(t, steps[2].X)
}
