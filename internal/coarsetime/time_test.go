package coarsetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow(t *testing.T) {
	before := time.Now()
	got := Now()

	assert.WithinDuration(t, before, got, 2*tick)
}

func TestNow_Advances(t *testing.T) {
	first := Now()
	time.Sleep(3 * tick)
	assert.True(t, Now().After(first))
}

func TestSince(t *testing.T) {
	assert.Equal(t, time.Duration(0), Since(time.Now().Add(time.Hour)))
	assert.GreaterOrEqual(t, Since(time.Now().Add(-time.Hour)), 59*time.Minute)
}

// BenchmarkTimeNow/time-8         	35926340	         32.82 ns/op	       0 B/op	       0 allocs/op
// BenchmarkTimeNow/coarsetime-8   	609668066	         1.950 ns/op	       0 B/op	       0 allocs/op
func BenchmarkTimeNow(b *testing.B) {
	var t time.Time

	b.Run("time", func(b *testing.B) {
		for b.Loop() {
			t = time.Now()
		}
	})

	b.Run("coarsetime", func(b *testing.B) {
		for b.Loop() {
			t = Now()
		}
	})

	_ = t
}
