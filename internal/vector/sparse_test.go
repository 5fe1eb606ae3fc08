package vector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	v := New()
	v.Set(5, 1.5)
	v.Set(2, 0.5)
	v.Set(8, 2.0)

	require.Equal(t, []uint32{2, 5, 8}, v.Indices)
	require.InDelta(t, 0.5, v.Get(2), 1e-6)
	require.InDelta(t, 1.5, v.Get(5), 1e-6)
	require.InDelta(t, 2.0, v.Get(8), 1e-6)
	require.Equal(t, float32(0), v.Get(99))
}

func TestUpdateValue(t *testing.T) {
	v := New()
	v.Set(3, 1.0)
	v.Set(3, 2.0)

	require.Equal(t, 1, v.Len())
	require.InDelta(t, 2.0, v.Get(3), 1e-6)
}

func TestRemoveOnZero(t *testing.T) {
	v := New()
	v.Set(3, 1.0)
	v.Set(3, 0.0)

	require.True(t, v.IsEmpty())
}

func TestAdd(t *testing.T) {
	a := New()
	a.Set(1, 1.0)
	a.Set(3, 2.0)

	b := New()
	b.Set(1, 0.5)
	b.Set(2, 1.0)

	sum := a.Add(b)
	require.InDelta(t, 1.5, sum.Get(1), 1e-6)
	require.InDelta(t, 1.0, sum.Get(2), 1e-6)
	require.InDelta(t, 2.0, sum.Get(3), 1e-6)
}

func TestDotProduct(t *testing.T) {
	a := New()
	a.Set(1, 2.0)
	a.Set(3, 4.0)

	b := New()
	b.Set(1, 3.0)
	b.Set(2, 5.0)
	b.Set(3, 1.0)

	require.InDelta(t, 10.0, a.Dot(b), 1e-6)
	require.InDelta(t, a.Dot(b), b.Dot(a), 1e-6)
}

func TestMagnitude(t *testing.T) {
	v := New()
	v.Set(0, 3.0)
	v.Set(1, 4.0)

	require.InDelta(t, 5.0, v.Magnitude(), 1e-6)
}

func TestNormalize(t *testing.T) {
	v := New()
	v.Set(0, 3.0)
	v.Set(1, 4.0)

	n := v.Normalize()
	require.InDelta(t, 1.0, n.Magnitude(), 1e-6)
}

func TestNormalizeZeroMagnitude(t *testing.T) {
	v := New()
	n := v.Normalize()
	require.True(t, n.IsEmpty())
}

func TestCosineSimilarityIdentical(t *testing.T) {
	v := New()
	v.Set(0, 1.0)
	v.Set(1, 2.0)

	require.InDelta(t, 1.0, v.CosineSimilarity(v), 1e-6)
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := New()
	a.Set(0, 1.0)

	b := New()
	b.Set(1, 1.0)

	require.InDelta(t, 0.0, a.CosineSimilarity(b), 1e-6)
}

func TestCosineSimilaritySimilar(t *testing.T) {
	a := New()
	a.Set(0, 1.0)
	a.Set(1, 1.0)

	b := New()
	b.Set(0, 2.0)
	b.Set(1, 2.0)

	require.InDelta(t, 1.0, a.CosineSimilarity(b), 1e-6)
}

func TestScale(t *testing.T) {
	v := New()
	v.Set(0, 2.0)
	v.Set(1, 3.0)

	scaled := v.Scale(2.0)
	require.InDelta(t, 4.0, scaled.Get(0), 1e-6)
	require.InDelta(t, 6.0, scaled.Get(1), 1e-6)

	probe := New()
	probe.Set(0, 1.0)
	probe.Set(1, 1.0)
	require.InDelta(t, v.CosineSimilarity(probe), scaled.CosineSimilarity(probe), 1e-6)
}

func TestFromParts(t *testing.T) {
	v := FromParts([]uint32{1, 3, 5}, []float32{0.1, 0.2, 0.3})
	require.Equal(t, 3, v.Len())
	require.InDelta(t, 0.2, v.Get(3), 1e-6)
}

func TestEmptyVector(t *testing.T) {
	v := New()
	require.True(t, v.IsEmpty())
	require.Equal(t, float32(0), v.Magnitude())
	require.Equal(t, float32(0), v.CosineSimilarity(v))
}

func TestSetThenUnsetRoundTrip(t *testing.T) {
	v := New()
	v.Set(4, 1.0)
	v.Set(9, 2.0)
	before := append([]uint32(nil), v.Indices...)

	v.Set(4, 1.0)
	v.Set(4, 0.0)
	v.Set(4, 1.0)

	require.Equal(t, before, v.Indices)
}

func TestTopKSimilar(t *testing.T) {
	probe := New()
	probe.Set(0, 1.0)
	probe.Set(1, 1.0)

	near := New()
	near.Set(0, 1.0)
	near.Set(1, 1.0)

	far := New()
	far.Set(2, 1.0)

	opposite := New()
	opposite.Set(0, -1.0)
	opposite.Set(1, -1.0)

	candidates := []Candidate[string]{
		{ID: "near", Vector: near},
		{ID: "far", Vector: far},
		{ID: "opposite", Vector: opposite},
	}

	top := TopKSimilar(probe, candidates, 5)
	require.Len(t, top, 1)
	require.Equal(t, "near", top[0].ID)
}
