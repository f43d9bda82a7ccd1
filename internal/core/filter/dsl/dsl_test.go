package dsl_test

import (
	"testing"

	"github.com/appri/incidentdb/internal/core/filter/domain"
	"github.com/appri/incidentdb/internal/core/filter/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []domain.FilterCondition
	}{
		{
			name:  "single comparison",
			input: `folio = 11111`,
			want: []domain.FilterCondition{
				{Column: "folio", Operator: domain.Eq, Value: domain.Single("11111"), Logical: domain.AND},
			},
		},
		{
			name:  "between and trailing condition",
			input: `monto between 10 and 20 and estado = 'CDMX'`,
			want: []domain.FilterCondition{
				{Column: "monto", Operator: domain.Between, Value: domain.Range("10", "20"), Logical: domain.AND},
				{Column: "estado", Operator: domain.Eq, Value: domain.Single("CDMX"), Logical: domain.AND},
			},
		},
		{
			name:  "or opens a group",
			input: `a = 1 OR b >= 2.5 and c StartsWith x`,
			want: []domain.FilterCondition{
				{Column: "a", Operator: domain.Eq, Value: domain.Single("1"), Logical: domain.AND},
				{Column: "b", Operator: domain.Gte, Value: domain.Single("2.5"), Logical: domain.OR},
				{Column: "c", Operator: domain.StartsWith, Value: domain.Single("x"), Logical: domain.AND},
			},
		},
		{
			name:  "dates and quoted columns",
			input: `"fecha de alta" between 2023-01-01 and 2023-12-31 or "and" contains "a b"`,
			want: []domain.FilterCondition{
				{Column: "fecha de alta", Operator: domain.Between, Value: domain.Range("2023-01-01", "2023-12-31"), Logical: domain.AND},
				{Column: "and", Operator: domain.Contains, Value: domain.Single("a b"), Logical: domain.OR},
			},
		},
		{
			name:  "accented identifiers and negatives",
			input: `población != -3 or descripción endswith 'é'`,
			want: []domain.FilterCondition{
				{Column: "población", Operator: domain.NotEq, Value: domain.Single("-3"), Logical: domain.AND},
				{Column: "descripción", Operator: domain.EndsWith, Value: domain.Single("é"), Logical: domain.OR},
			},
		},
		{
			name:  "keyword prefix is still an identifier",
			input: `orden < 5`,
			want: []domain.FilterCondition{
				{Column: "orden", Operator: domain.Lt, Value: domain.Single("5"), Logical: domain.AND},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dsl.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	got, err := dsl.Parse("   ")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParse_Errors(t *testing.T) {
	for _, input := range []string{
		`folio =`,
		`folio like 'x'`,
		`monto between 1`,
		`a = 1 xor b = 2`,
		`= 3`,
	} {
		t.Run(input, func(t *testing.T) {
			_, err := dsl.Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	conds := []domain.FilterCondition{
		{Column: "folio", Operator: domain.StartsWith, Value: domain.Single("AB"), Logical: domain.AND},
		{Column: "monto total", Operator: domain.Between, Value: domain.Range("1", "9"), Logical: domain.OR},
		{Column: "or", Operator: domain.Eq, Value: domain.Single(`say "hi"`)},
	}

	text := dsl.Format(conds)
	assert.Equal(t, `folio startswith "AB" or "monto total" between "1" and "9" and "or" = "say \"hi\""`, text)

	parsed, err := dsl.Parse(text)
	require.NoError(t, err)
	conds[2].Logical = domain.AND
	assert.Equal(t, conds, parsed)
}
