package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeIssues(t *testing.T) {
	in := []string{"jittery_movement", "static_mouth", "jittery_movement"}
	out := dedupeIssues(in)
	assert.Equal(t, []string{"jittery_movement", "static_mouth"}, out)

	assert.Empty(t, dedupeIssues(nil))
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 5, clampInt(5, 0, 10))
	assert.Equal(t, 0, clampInt(-3, 0, 10))
	assert.Equal(t, 10, clampInt(42, 0, 10))
}
