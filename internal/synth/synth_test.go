package synth

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/sectorflow/internal/seed"
)

func TestTrailingReturn_Bounds(t *testing.T) {
	for i := 0; i < 500; i++ {
		r := TrailingReturn(fmt.Sprintf("T%d", i), "2025-03-14")
		assert.GreaterOrEqual(t, r, MinReturn)
		assert.LessOrEqual(t, r, MaxReturn)
	}
}

func TestTrailingReturn_Formula(t *testing.T) {
	u := seed.Sample("ticker-return:AAPL:2025-03-14")
	expected := clamp((u-0.45)*0.55, -0.20, 0.35)
	assert.Equal(t, expected, TrailingReturn("AAPL", "2025-03-14"))
}

func TestTrailingReturn_Deterministic(t *testing.T) {
	assert.Equal(t, TrailingReturn("MSFT", "2025-01-01"), TrailingReturn("MSFT", "2025-01-01"))
}

func TestBucket(t *testing.T) {
	labels := [3]string{"hi", "mid", "lo"}
	tests := []struct {
		u    float64
		want string
	}{
		{0.99, "hi"},
		{0.661, "hi"},
		{0.66, "mid"},
		{0.34, "mid"},
		{0.33, "lo"},
		{0.0, "lo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bucket(tt.u, labels), "u=%v", tt.u)
	}
}

func TestSignal_ClosedTaxonomy(t *testing.T) {
	allowed := map[string]map[string]bool{}
	for _, e := range Glossary() {
		if allowed[e.Facet] == nil {
			allowed[e.Facet] = map[string]bool{}
		}
		allowed[e.Facet][e.Label] = true
	}

	for i := 0; i < 200; i++ {
		sig := Signal(fmt.Sprintf("Sector%d", i%7), fmt.Sprintf("T%d", i), "2025-03-14")
		parts := strings.Split(sig, SignalSeparator)
		require.Len(t, parts, 3, sig)
		assert.True(t, allowed[FacetConcentration][parts[0]], parts[0])
		assert.True(t, allowed[FacetBreadth][parts[1]], parts[1])
		assert.True(t, allowed[FacetStability][parts[2]], parts[2])
	}
}

func TestSignal_FacetsUseIndependentKeys(t *testing.T) {
	sig := Signal("Energy", "XOM", "2025-03-14")
	parts := strings.Split(sig, SignalSeparator)
	require.Len(t, parts, 3)

	assert.Equal(t, bucket(seed.Sample("c:Energy:2025-03-14"), concentrationLabels), parts[0])
	assert.Equal(t, bucket(seed.Sample("b:Energy:XOM:2025-03-14"), breadthLabels), parts[1])
	assert.Equal(t, bucket(seed.Sample("t:XOM:2025-03-14"), stabilityLabels), parts[2])
}

func TestGlossary_ReturnsCopy(t *testing.T) {
	g := Glossary()
	require.Len(t, g, 9)
	g[0].Label = "mutated"
	assert.Equal(t, "High spend concentration", Glossary()[0].Label)
}
