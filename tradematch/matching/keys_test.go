package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectKey(t *testing.T) {
	assert.Equal(t, "direct:alice:bob", DirectKey("alice", "bob"))
	assert.Equal(t, "direct:alice:bob", DirectKey("bob", "alice"))
}

func TestCycleKey(t *testing.T) {
	tests := []struct {
		name         string
		participants []string
		expected     string
	}{
		{
			name:         "already canonical",
			participants: []string{"alice", "bob", "carol"},
			expected:     "tri:alice:bob:carol",
		},
		{
			name:         "rotation preserves traversal order",
			participants: []string{"carol", "alice", "bob"},
			expected:     "tri:alice:bob:carol",
		},
		{
			name:         "rotation is not a sort",
			participants: []string{"bob", "alice", "carol"},
			expected:     "tri:alice:carol:bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CycleKey(tt.participants))
		})
	}
}

func TestCycleKeyStableUnderRotation(t *testing.T) {
	cycle := []string{"dave", "bob", "erin", "carol"}
	want := CycleKey(cycle)
	for i := 1; i < len(cycle); i++ {
		rotated := append(append([]string{}, cycle[i:]...), cycle[:i]...)
		assert.Equal(t, want, CycleKey(rotated))
	}
}
