package testfixtures

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock(t *testing.T) {
	t.Parallel()

	assert.True(t, NewClock(time.Time{}).Now().Equal(ReferenceTime()))

	start := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	clock := NewClock(start)
	now := clock.NowFunc()
	assert.True(t, now().Equal(start))

	assert.True(t, clock.Advance(90*time.Minute).Equal(start.Add(90*time.Minute)))
	assert.True(t, now().Equal(start.Add(90*time.Minute)), "NowFunc follows the clock")

	var nilClock *Clock
	assert.WithinDuration(t, time.Now(), nilClock.NowFunc()(), time.Minute)
}

func TestClockSteppingNowFunc(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	clock := NewClock(start)
	next := clock.SteppingNowFunc(time.Millisecond)

	assert.True(t, next().Equal(start))
	assert.True(t, next().Equal(start.Add(time.Millisecond)))
	assert.True(t, clock.Now().Equal(start.Add(2*time.Millisecond)))
}

func TestIDGenerator(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("session")
	assert.Equal(t, "session-0001", gen.Next())
	assert.Equal(t, "session-0002", gen.NextFunc()())
	assert.Equal(t, "id-0001", NewIDGenerator("").Next())

	previous := gen.Next()
	for i := 0; i < 20; i++ {
		next := gen.Next()
		assert.Greater(t, next, previous)
		previous = next
	}
}

func TestIDGeneratorConcurrentUse(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("c")
	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, dup := seen.LoadOrStore(gen.Next(), struct{}{})
				assert.False(t, dup)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(200), gen.Issued())
}
