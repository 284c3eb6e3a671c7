package observability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceCollector_StepOK(t *testing.T) {
	trace := NewTraceCollector()

	err := trace.Step("solana_research", "max_signatures=50", func() error { return nil })
	require.NoError(t, err)

	steps := trace.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, "solana_research", steps[0].Step)
	assert.True(t, steps[0].OK)
	assert.Equal(t, "max_signatures=50", steps[0].Detail)
	assert.GreaterOrEqual(t, steps[0].DurationMS, int64(0))
}

func TestTraceCollector_StepError(t *testing.T) {
	trace := NewTraceCollector()
	boom := errors.New("node unreachable")

	err := trace.Step("solana_research", "max_signatures=50", func() error { return boom })
	require.ErrorIs(t, err, boom)

	steps := trace.Steps()
	require.Len(t, steps, 1)
	assert.False(t, steps[0].OK)
	assert.Equal(t, "node unreachable", steps[0].Detail, "error text replaces the detail")
}

func TestTraceCollector_Order(t *testing.T) {
	trace := NewTraceCollector()
	trace.Step("first", "", func() error { return nil })
	trace.Step("second", "", func() error { return errors.New("x") })
	trace.Step("third", "", func() error { return nil })

	steps := trace.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, "first", steps[0].Step)
	assert.Equal(t, "second", steps[1].Step)
	assert.Equal(t, "third", steps[2].Step)
	assert.False(t, steps[1].OK)
}
