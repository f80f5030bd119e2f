package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"full taxonomy path", "uuid;aves;passeriformes;cardinalidae;cardinalis;cardinalis;northern_cardinal", "Northern Cardinal"},
		{"path with trailing empty segments", "uuid;aves;;;;blue_jay;", "Blue Jay"},
		{"plain species name", "Northern Cardinal", "Northern Cardinal"},
		{"underscores only", "red_tailed_hawk", "Red Tailed Hawk"},
		{"lowercase single word", "bird", "Bird"},
		{"empty string", "", "Unknown"},
		{"whitespace only", "   ", "Unknown"},
		{"segments all empty passes through", ";;;", ";;;"},
		{"segment with surrounding spaces", "a; mourning_dove ", "Mourning Dove"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"uuid;aves;passeriformes;corvidae;cyanocitta;cristata;blue_jay",
		"american_robin",
		"Bird",
		"",
	}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "Normalize should be idempotent for %q", input)
	}
}

func TestNormalizeSemicolonsAllEmptyButOne(t *testing.T) {
	t.Parallel()

	// A path whose only meaningful content sits mid-path still resolves to
	// the last non-empty segment.
	assert.Equal(t, "Aves", Normalize("uuid;aves;;;"))
}

func TestIsGeneric(t *testing.T) {
	t.Parallel()

	assert.True(t, IsGeneric("Bird"))
	assert.True(t, IsGeneric("bird"))
	assert.True(t, IsGeneric("BIRD"))
	assert.False(t, IsGeneric("Blue Jay"))
	assert.False(t, IsGeneric(""))
	assert.False(t, IsGeneric("Birds"))
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		blocked bool
	}{
		{"Blank", true},
		{"blank", true},
		{"Unknown", true},
		{"Vehicle", true},
		{"Human", true},
		{"Person", true},
		{"", true},
		{"Bird", false},
		{"Northern Cardinal", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.blocked, IsBlocked(tt.name), "IsBlocked(%q)", tt.name)
	}
}
