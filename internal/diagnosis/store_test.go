package diagnosis

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionStoreReturnsSameSession(t *testing.T) {
	st := NewSessionStore()

	sess, release := st.Acquire("a")
	sess.FollowupCount = 2
	release()

	again, release := st.Acquire("a")
	defer release()
	assert.Same(t, sess, again)
	assert.Equal(t, 2, again.FollowupCount)
	assert.Equal(t, 1, st.Len())
}

func TestSessionStoreSerializesWriters(t *testing.T) {
	st := NewSessionStore()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, release := st.Acquire("shared")
			sess.FollowupCount++
			release()
		}()
	}
	wg.Wait()

	sess, release := st.Acquire("shared")
	defer release()
	assert.Equal(t, n, sess.FollowupCount)
}

func TestSessionStoreIsolatesSessions(t *testing.T) {
	st := NewSessionStore()

	a, releaseA := st.Acquire("a")
	// Holding a does not block b.
	b, releaseB := st.Acquire("b")
	b.FollowupCount = 1
	releaseB()
	releaseA()

	assert.Zero(t, a.FollowupCount)
	assert.Equal(t, 2, st.Len())
}
