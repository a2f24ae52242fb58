package dialect

import (
	"testing"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderChaining(t *testing.T) {
	d := NewDialect("test").
		Identifiers("`", "`", "``", NormCaseSensitive).
		DefaultSchema("main").
		PlaceholderStyle(PlaceholderDollar).
		Aggregates("sum", "count").
		WithReservedWords("SELECT", "order").
		Build()

	require.NotNil(t, d)
	assert.Equal(t, "test", d.Name)
	assert.Equal(t, "main", d.DefaultSchema)
	assert.True(t, d.IsAggregate("SUM"))
	assert.True(t, d.IsAggregate("count"))
	assert.False(t, d.IsAggregate("GROUP_CONCAT"))
	assert.True(t, d.IsReservedWord("select"))
	assert.True(t, d.IsReservedWord("ORDER"))
}

func TestNormalizationStrategies(t *testing.T) {
	tests := []struct {
		name  string
		norm  NormalizationStrategy
		input string
		want  string
	}{
		{"lowercase", NormLowercase, "FooBar", "foobar"},
		{"uppercase", NormUppercase, "FooBar", "FOOBAR"},
		{"case sensitive", NormCaseSensitive, "FooBar", "FooBar"},
		{"case insensitive", NormCaseInsensitive, "FooBar", "foobar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDialect("test").
				Identifiers(`"`, `"`, `""`, tt.norm).
				Build()

			assert.Equal(t, tt.want, d.NormalizeName(tt.input))
		})
	}
}

func TestFormatPlaceholder(t *testing.T) {
	question := NewDialect("q").PlaceholderStyle(PlaceholderQuestion).Build()
	dollar := NewDialect("d").PlaceholderStyle(PlaceholderDollar).Build()

	assert.Equal(t, "?", question.FormatPlaceholder(1))
	assert.Equal(t, "?", question.FormatPlaceholder(7))
	assert.Equal(t, "$1", dollar.FormatPlaceholder(1))
	assert.Equal(t, "$12", dollar.FormatPlaceholder(12))
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		input   string
		want    string
		ifNeed  string
	}{
		{
			name:    "ansi reserved word",
			builder: NewDialect("ansi-like").WithReservedWords("order"),
			input:   "order",
			want:    `"order"`,
			ifNeed:  `"order"`,
		},
		{
			name:    "ansi plain word",
			builder: NewDialect("ansi-like").WithReservedWords("order"),
			input:   "orders",
			want:    `"orders"`,
			ifNeed:  "orders",
		},
		{
			name:    "backtick escapes embedded quote",
			builder: NewDialect("mysql-like").Identifiers("`", "`", "``", NormCaseSensitive),
			input:   "we`ird",
			want:    "`we``ird`",
			ifNeed:  "we`ird",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.builder.Build()
			assert.Equal(t, tt.want, d.QuoteIdentifier(tt.input))
			assert.Equal(t, tt.ifNeed, d.QuoteIdentifierIfNeeded(tt.input))
		})
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := &core.DialectConfig{
		Name:          "roundtrip",
		DefaultSchema: "public",
		Placeholder:   core.PlaceholderDollar,
		Aggregates:    []string{"SUM"},
		Identifiers: core.IdentifierConfig{
			Quote: `"`, QuoteEnd: `"`, Escape: `""`, Normalization: core.NormLowercase,
		},
	}

	d := New(cfg).Build()
	got := d.Config()

	assert.Equal(t, cfg.Name, got.Name)
	assert.Equal(t, cfg.DefaultSchema, got.DefaultSchema)
	assert.Equal(t, cfg.Placeholder, got.Placeholder)
	assert.Equal(t, []string{"SUM"}, got.Aggregates)
}

func TestRegistry(t *testing.T) {
	d := NewDialect("Registry_Test").Build()
	Register(d)

	got, ok := Get("registry_test")
	require.True(t, ok)
	assert.Same(t, d, got)
	assert.Contains(t, List(), "registry_test")

	_, ok = Get("does_not_exist")
	assert.False(t, ok)
}

func TestDefaultIsANSI(t *testing.T) {
	d := Default()
	require.NotNil(t, d)
	assert.Equal(t, "ansi", d.Name)
	for _, agg := range []string{"COUNT", "SUM", "AVG", "MIN", "MAX", "GROUP_CONCAT"} {
		assert.True(t, d.IsAggregate(agg), agg)
	}
}
