package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ExactChunkSizeYieldsOneChunk(t *testing.T) {
	items := make([]int, 100)
	chunks, err := Split(items, 100, 6, 52428)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0].Rows, 100)
}

func TestSplit_ChunkSizePlusOneYieldsTwoChunksSecondHasOneRow(t *testing.T) {
	items := make([]int, 101)
	chunks, err := Split(items, 100, 6, 52428)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0].Rows, 100)
	assert.Len(t, chunks[1].Rows, 1)
}

func TestSplit_PreservesInputOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	chunks, err := Split(items, 2, 1, 52428)

	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{1, 2}, chunks[0].Rows)
	assert.Equal(t, []int{3, 4}, chunks[1].Rows)
	assert.Equal(t, []int{5}, chunks[2].Rows)
}

func TestSplit_RejectsOverBudgetChunkSize(t *testing.T) {
	items := make([]int, 10)
	_, err := Split(items, 7000, 19, 52428)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "133000 parameters")
}

func TestSplit_EmptyInputYieldsNoChunks(t *testing.T) {
	chunks, err := Split([]int{}, 100, 6, 52428)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

// Every chunk produced respects rows * cols_per_row <= SAFE (spec §8.1).
func TestSplit_NeverExceedsParameterBudget(t *testing.T) {
	const safe = 52428
	const cols = 19
	const chunkSize = 2700 // floor(52428/19) = 2759, spec uses 2700

	items := make([]int, 10000)
	chunks, err := Split(items, chunkSize, cols, safe)
	require.NoError(t, err)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Rows)*cols, safe)
	}
}
