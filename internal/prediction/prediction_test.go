package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    []Prediction
		expected []Prediction
	}{
		{
			name:     "empty input",
			input:    nil,
			expected: nil,
		},
		{
			name:     "single prediction",
			input:    []Prediction{{Name: "Blue Jay", Confidence: 0.9}},
			expected: []Prediction{{Name: "Blue Jay", Confidence: 0.9}},
		},
		{
			name: "sorted by confidence descending",
			input: []Prediction{
				{Name: "Mourning Dove", Confidence: 0.3},
				{Name: "Northern Cardinal", Confidence: 0.95},
				{Name: "Blue Jay", Confidence: 0.6},
			},
			expected: []Prediction{
				{Name: "Northern Cardinal", Confidence: 0.95},
				{Name: "Blue Jay", Confidence: 0.6},
				{Name: "Mourning Dove", Confidence: 0.3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Merge(tt.input))
		})
	}
}

func TestMergeDuplicateKeepsWinner(t *testing.T) {
	t.Parallel()

	got := Merge([]Prediction{
		{Name: "Blue Jay", Confidence: 0.8},
		{Name: "BLUE JAY", Confidence: 0.4},
	})
	assert.Equal(t, []Prediction{{Name: "Blue Jay", Confidence: 0.8}}, got)
}

func TestContainsGeneric(t *testing.T) {
	t.Parallel()

	assert.False(t, ContainsGeneric(nil))
	assert.False(t, ContainsGeneric([]Prediction{{Name: "Blue Jay", Confidence: 0.9}}))
	assert.True(t, ContainsGeneric([]Prediction{
		{Name: "Blue Jay", Confidence: 0.9},
		{Name: "Bird", Confidence: 0.5},
	}))
	assert.True(t, ContainsGeneric([]Prediction{{Name: "bird", Confidence: 0.5}}))
}

func TestRemoveGeneric(t *testing.T) {
	t.Parallel()

	got := RemoveGeneric([]Prediction{
		{Name: "Bird", Confidence: 0.9},
		{Name: "Blue Jay", Confidence: 0.6},
		{Name: "bird", Confidence: 0.3},
	})
	assert.Equal(t, []Prediction{{Name: "Blue Jay", Confidence: 0.6}}, got)

	assert.Nil(t, RemoveGeneric([]Prediction{{Name: "Bird", Confidence: 0.9}}))
	assert.Nil(t, RemoveGeneric(nil))
}
