package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		valueA   int64
		valueB   int64
		countA   int
		countB   int
		expected int
	}{
		{
			name:     "zero value side scores zero",
			valueA:   0,
			valueB:   100,
			countA:   0,
			countB:   2,
			expected: 0,
		},
		{
			name:     "negative value side scores zero",
			valueA:   -5,
			valueB:   100,
			countA:   1,
			countB:   2,
			expected: 0,
		},
		{
			name:   "two item swap worth 40 and 38",
			valueA: 40,
			valueB: 38,
			countA: 1,
			countB: 1,
			// balance 38, magnitude 4.68, variety 6
			expected: 48,
		},
		{
			name:     "perfectly balanced high value trade caps at 100",
			valueA:   5000,
			valueB:   5000,
			countA:   10,
			countB:   10,
			expected: 100,
		},
		{
			name:   "magnitude saturates at combined value 500",
			valueA: 250,
			valueB: 250,
			countA: 1,
			countB: 1,
			// balance 40, magnitude 30, variety 6
			expected: 76,
		},
		{
			name:   "variety saturates at ten items",
			valueA: 10,
			valueB: 10,
			countA: 20,
			countB: 20,
			// balance 40, magnitude 1.2, variety 30
			expected: 71,
		},
		{
			name:   "lopsided values score low",
			valueA: 1,
			valueB: 1000,
			countA: 1,
			countB: 1,
			// balance 0.04, magnitude 30, variety 6
			expected: 36,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Score(tt.valueA, tt.valueB, tt.countA, tt.countB))
		})
	}
}

func TestScoreSymmetry(t *testing.T) {
	pairs := []struct {
		valueA, valueB int64
		countA, countB int
	}{
		{40, 38, 1, 1},
		{100, 300, 2, 5},
		{1, 999, 1, 9},
		{500, 500, 3, 3},
	}

	for _, p := range pairs {
		assert.Equal(t,
			Score(p.valueA, p.valueB, p.countA, p.countB),
			Score(p.valueB, p.valueA, p.countB, p.countA),
			"score must not depend on side order")
	}
}

func TestBalanceScore(t *testing.T) {
	tests := []struct {
		name     string
		values   []int64
		expected float64
	}{
		{
			name:     "empty edge list",
			values:   nil,
			expected: 0,
		},
		{
			name:     "identical edge values",
			values:   []int64{20, 20, 20},
			expected: 1,
		},
		{
			name:     "all zero values",
			values:   []int64{0, 0, 0},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, BalanceScore(tt.values), 1e-9)
		})
	}
}

func TestBalanceScoreOrdering(t *testing.T) {
	even := BalanceScore([]int64{30, 30, 30})
	slightlyOff := BalanceScore([]int64{28, 30, 32})
	lopsided := BalanceScore([]int64{5, 30, 100})

	assert.Greater(t, even, slightlyOff)
	assert.Greater(t, slightlyOff, lopsided)
	assert.GreaterOrEqual(t, lopsided, 0.0)
	assert.LessOrEqual(t, even, 1.0)
}
