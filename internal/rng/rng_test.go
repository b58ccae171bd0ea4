package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicRNG_SameSeedSameSequence(t *testing.T) {
	a := NewDeterministicRNG(42)
	b := NewDeterministicRNG(42)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestDeterministicRNG_DifferentSeedsDiverge(t *testing.T) {
	a := NewDeterministicRNG(1)
	b := NewDeterministicRNG(2)

	assert.NotEqual(t, a.Next(), b.Next())
}

func TestDeterministicRNG_ZeroSeedIsNotDegenerate(t *testing.T) {
	r := NewDeterministicRNG(0)
	first := r.Next()
	second := r.Next()
	assert.NotEqual(t, first, second)
}

func TestCompose32_DeterministicGivenSeed(t *testing.T) {
	a := Compose32(NewDeterministicRNG(7))
	b := Compose32(NewDeterministicRNG(7))
	assert.Equal(t, a, b)
}

func TestCompose32_UsesThreeDraws(t *testing.T) {
	r := NewDeterministicRNG(123)
	want := uint32(r.Next15()&0x7fff) | uint32(r.Next15()&0x7fff)<<15 | uint32(r.Next15()&0x3)<<30

	r2 := NewDeterministicRNG(123)
	got := Compose32(r2)

	assert.Equal(t, want, got)
}
