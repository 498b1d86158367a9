package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyClaimsFirstOccurrenceWins(t *testing.T) {
	k := keyClaims{}
	first, ok := k.claim("pn-1", 1)
	assert.True(t, ok)
	assert.Equal(t, 1, first)

	first, ok = k.claim("pn-1", 7)
	assert.False(t, ok)
	assert.Equal(t, 1, first)
}

func TestSchemaKeyIsCaseInsensitive(t *testing.T) {
	s := priceSchema(t)
	assert.Equal(t, s.Key(map[string]any{"partNumber": " AB-12 "}), s.Key(map[string]any{"partNumber": "ab-12"}))
}

func TestDiffInheritsStoredStatus(t *testing.T) {
	s := priceSchema(t)
	c := cleanRow(t,
		[]string{"Part Number", "CMC Price", "NCMC Price"},
		[]string{"PN-1", "100", "200"})
	require.True(t, c.Valid())

	d := s.DiffExisting(map[string]any{
		"partNumber": "PN-1", "cmcPrice": 100.0, "ncmcPrice": int32(200), StatusField: "Inactive",
	}, c)

	assert.Equal(t, "Inactive", d.AssignedStatus)
	assert.False(t, d.StatusChanged)
	assert.Empty(t, d.Changes)
	assert.Equal(t, "Inactive", c.Record[StatusField])
	assert.NotContains(t, d.Set, StatusField)
}

func TestDiffStatusOnlyChangeIsAnUpdate(t *testing.T) {
	s := priceSchema(t)
	c := cleanRow(t,
		[]string{"Part Number", "CMC Price", "NCMC Price", "Status"},
		[]string{"PN-1", "100", "200", "Active"})
	require.True(t, c.Valid())

	d := s.DiffExisting(map[string]any{
		"partNumber": "PN-1", "cmcPrice": 100.0, "ncmcPrice": 200.0, StatusField: "Inactive",
	}, c)

	assert.Equal(t, "Active", d.AssignedStatus)
	assert.True(t, d.StatusChanged)
	assert.Equal(t, []Change{{Field: StatusField, OldValue: "Inactive", NewValue: "Active"}}, d.Changes)
	assert.Equal(t, "Active", d.Set[StatusField])
}

func TestDiffComparesProvidedFieldsOnly(t *testing.T) {
	s := priceSchema(t)
	c := cleanRow(t,
		[]string{"Part Number", "CMC Price", "NCMC Price", "Created Date"},
		[]string{"PN-1", "150", "200", "2024-01-01"})
	require.True(t, c.Valid())

	d := s.DiffExisting(map[string]any{
		"partNumber":  "pn-1",
		"description": "stored description",
		"cmcPrice":    "100",
		"ncmcPrice":   200,
		"remarks":     "keep me",
	}, c)

	require.Len(t, d.Changes, 2)
	assert.Equal(t, "partNumber", d.Changes[0].Field)
	assert.Equal(t, Change{Field: "cmcPrice", OldValue: "100", NewValue: 150.0}, d.Changes[1])
	assert.NotContains(t, d.Set, "description")
	assert.NotContains(t, d.Set, "remarks")
	assert.NotContains(t, d.Set, CreatedAtField)
	assert.Equal(t, fixedNow, d.Set[ModifiedAtField])
}
