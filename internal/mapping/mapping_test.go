package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ladvien/self-sensored/internal/model"
)

func TestNewTable_SeedsKnownIdentifier(t *testing.T) {
	tbl := NewTable()
	kind, ok := tbl.KindForIdentifier("HKQuantityTypeIdentifierHeartRate")
	require.True(t, ok)
	assert.Equal(t, model.KindHeartRate, kind)
}

func TestKindForIdentifier_UnknownReturnsFalse(t *testing.T) {
	tbl := NewTable()
	_, ok := tbl.KindForIdentifier("not-a-real-identifier")
	assert.False(t, ok)
}

func TestReload_ReplacesEntriesAtomically(t *testing.T) {
	tbl := NewTable()
	err := tbl.Reload(map[string]string{"CustomVendorHR": "heart_rate"})
	require.NoError(t, err)

	_, stillThere := tbl.KindForIdentifier("HKQuantityTypeIdentifierHeartRate")
	assert.False(t, stillThere, "reload replaces rather than merges")

	kind, ok := tbl.KindForIdentifier("CustomVendorHR")
	require.True(t, ok)
	assert.Equal(t, model.KindHeartRate, kind)
}

func TestReload_RejectsUnknownKind(t *testing.T) {
	tbl := NewTable()
	err := tbl.Reload(map[string]string{"X": "not_a_kind"})
	require.Error(t, err)
}
