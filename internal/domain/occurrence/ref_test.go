package occurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef_Stored(t *testing.T) {
	ref, err := ParseRef("occ-123")

	require.NoError(t, err)
	stored, ok := ref.(StoredRef)
	require.True(t, ok)
	assert.Equal(t, "occ-123", stored.ID)
	assert.Equal(t, "occ-123", ref.String())
}

func TestParseRef_Virtual(t *testing.T) {
	ref, err := ParseRef("virtual_tmpl-9_2024-03-15")

	require.NoError(t, err)
	virtual, ok := ref.(VirtualRef)
	require.True(t, ok)
	assert.Equal(t, "tmpl-9", virtual.TemplateID)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), virtual.ExpectedDate)
}

func TestParseRef_VirtualTimestampFallback(t *testing.T) {
	ref, err := ParseRef("virtual_tmpl-9_2024-03-15T00:00:00Z")

	require.NoError(t, err)
	virtual, ok := ref.(VirtualRef)
	require.True(t, ok)
	assert.Equal(t, "tmpl-9", virtual.TemplateID)
	assert.True(t, virtual.ExpectedDate.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
}

func TestParseRef_Malformed(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"missing date", "virtual_tmpl-9"},
		{"empty template", "virtual__2024-03-15"},
		{"empty date", "virtual_tmpl-9_"},
		{"garbage date", "virtual_tmpl-9_not-a-date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRef(tt.id)
			assert.Error(t, err)
		})
	}
}

func TestParseRef_VirtualRoundTrip(t *testing.T) {
	original := VirtualRef{
		TemplateID:   "tmpl-42",
		ExpectedDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	parsed, err := ParseRef(original.String())

	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestParseRef_VirtualPrefixWithoutUnderscoreIsStored(t *testing.T) {
	// "virtualization-fund" is a legitimate stored id.
	ref, err := ParseRef("virtualization-fund")

	require.NoError(t, err)
	assert.Equal(t, StoredRef{ID: "virtualization-fund"}, ref)
}
