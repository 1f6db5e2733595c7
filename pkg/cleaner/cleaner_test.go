package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/dni-validator/pkg/model"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "00000000"},
		{"1", "00000001"},
		{"12.345.678", "12345678"},
		{"12 345-678", "12345678"},
		{"\t1234567\n", "01234567"},
		{"x123", "0000X123"},
		{"abc-12", "000ABC12"},
		{"123456789012", "123456789012"},
		{"Nº1", "00000Nº1"},
		{"+12", "+0000012"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.raw))
		})
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	inputs := []string{"", "7", "12.345-678", " ab c ", "00012345", "123456789012", "Nº 1-2", "+12"}
	for _, in := range inputs {
		once := Canonicalize(in)
		assert.Equal(t, once, Canonicalize(once), "input %q", in)
		assert.True(t, IsCanonical(once))
	}
}

func TestCanonicalizeCollapsesNoise(t *testing.T) {
	assert.Equal(t, Canonicalize("12345678"), Canonicalize("12.345-678"))
}

func TestNewIdentityNormalizerRejectsNilLogger(t *testing.T) {
	_, err := NewIdentityNormalizer(nil)
	assert.Error(t, err)
}

func TestNormalizeColumn(t *testing.T) {
	table, err := model.FromRows("raw", []string{"DNI", "nombre"}, [][]model.Cell{
		{model.TextCell("12.345.678"), model.TextCell("Ana")},
		{model.NumberCell(1234567), model.TextCell("Luis")},
		{model.EmptyCell(), model.TextCell("Eva")},
		{model.TextCell("87654321"), model.TextCell("Juan")},
	})
	require.NoError(t, err)

	n, err := NewIdentityNormalizer(zap.NewNop())
	require.NoError(t, err)

	keys, ops, err := n.NormalizeColumn(table, "DNI")
	require.NoError(t, err)

	assert.Equal(t, []string{"12345678", "01234567", "00000000", "87654321"}, keys)
	require.Len(t, ops, 3)
	assert.Equal(t, "stripped_separators", ops[0].Reason)
	assert.Equal(t, "zero_padded", ops[1].Reason)
	assert.Equal(t, "missing_value,zero_padded", ops[2].Reason)
	assert.Equal(t, 2, ops[2].Row)

	assert.Equal(t, map[string]int{
		"stripped_separators": 1,
		"zero_padded":         2,
		"missing_value":       1,
	}, CountByReason(ops))

	// Source table is untouched
	assert.Equal(t, "12.345.678", table.Cell("DNI", 0).String())
}

func TestNormalizeColumnUnknownColumn(t *testing.T) {
	table, err := model.FromRows("raw", []string{"DNI"}, nil)
	require.NoError(t, err)

	n, err := NewIdentityNormalizer(zap.NewNop())
	require.NoError(t, err)

	_, _, err = n.NormalizeColumn(table, "documento")
	assert.Error(t, err)
}
