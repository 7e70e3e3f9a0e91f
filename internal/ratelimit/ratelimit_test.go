package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinQuota(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("endpoint", "key", 3, 200*time.Millisecond)
		assert.True(t, allowed)
	}
}

func TestAllowRejectsOverQuota(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		l.Allow("endpoint", "key", 3, 500*time.Millisecond)
	}
	allowed, retryAfter := l.Allow("endpoint", "key", 3, 500*time.Millisecond)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestAllowResetsAfterWindow(t *testing.T) {
	l := New()
	window := 100 * time.Millisecond
	for i := 0; i < 2; i++ {
		l.Allow("endpoint", "key", 2, window)
	}
	allowed, _ := l.Allow("endpoint", "key", 2, window)
	assert.False(t, allowed)

	time.Sleep(window * 2)
	allowed, _ = l.Allow("endpoint", "key", 2, window)
	assert.True(t, allowed)
}

func TestBucketsAreIndependentPerKey(t *testing.T) {
	l := New()
	allowed1, _ := l.Allow("endpoint", "key-a", 1, time.Second)
	allowed2, _ := l.Allow("endpoint", "key-b", 1, time.Second)
	assert.True(t, allowed1)
	assert.True(t, allowed2)
}

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, 1, RetryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 2, RetryAfterSeconds(1500*time.Millisecond))
}
