package randx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDeterministic(t *testing.T) {
	a := New(12345)
	b := New(12345)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.IntN(100000), b.IntN(100000), "mismatch at draw %d", i)
	}
}

func TestSeedWordChangesWithSalt(t *testing.T) {
	assert.NotEqual(t, seedWord(99, "a"), seedWord(99, "b"))
}

func TestUniformStaysInRange(t *testing.T) {
	r := New(7)
	for i := 0; i < 1000; i++ {
		v := Uniform(r, -20, 20)
		assert.GreaterOrEqual(t, v, -20.0)
		assert.Less(t, v, 20.0)
	}
}

func TestOneInEdges(t *testing.T) {
	r := New(1)
	assert.True(t, OneIn(r, 1))
	assert.True(t, OneIn(r, 0))
}

func TestPercentEdges(t *testing.T) {
	r := New(3)
	for i := 0; i < 100; i++ {
		assert.False(t, Percent(r, 0))
		assert.True(t, Percent(r, 100))
	}
}
