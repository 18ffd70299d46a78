package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaveAndRecent(t *testing.T) {
	s := NewStore()
	s.SaveContext("s1", "q1", "a1")
	s.SaveContext("s1", "q2", "a2")
	s.SaveContext("s2", "other", "session")

	assert.Equal(t, []string{"q1 -> a1", "q2 -> a2"}, s.Recent("s1", 5))
	assert.Equal(t, []string{"q2 -> a2"}, s.Recent("s1", 1))
	assert.Empty(t, s.Recent("s3", 5))
}

func TestLimitEvictsOldest(t *testing.T) {
	s := NewStore()
	for i := 0; i < defaultLimit+3; i++ {
		s.SaveContext("s1", fmt.Sprintf("q%d", i), "a")
	}

	recent := s.Recent("s1", defaultLimit+10)
	assert.Len(t, recent, defaultLimit)
	assert.Equal(t, "q3 -> a", recent[0])
}

func TestClearDropsOnlyOneSession(t *testing.T) {
	s := NewStore()
	s.SaveContext("s1", "q", "a")
	s.SaveContext("s2", "q", "a")

	s.Clear("s1")

	assert.Empty(t, s.Recent("s1", 5))
	assert.Len(t, s.Recent("s2", 5), 1)
}
