package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff(100*time.Millisecond, WithJitter(0))

	assert.Equal(t, time.Duration(0), b.Next(0))
	assert.Equal(t, 100*time.Millisecond, b.Next(1))
	assert.Equal(t, 200*time.Millisecond, b.Next(2))
	assert.Equal(t, 400*time.Millisecond, b.Next(3))
}

func TestExponentialBackoff_Options(t *testing.T) {
	b := ExponentialBackoff(time.Second, WithJitter(0), WithMultiplier(3), WithMaxDelay(5*time.Second))

	assert.Equal(t, 3*time.Second, b.Next(2))
	assert.Equal(t, 5*time.Second, b.Next(3))
	assert.Equal(t, 5*time.Second, b.Next(10))
}

func TestExponentialBackoff_Jitter(t *testing.T) {
	b := ExponentialBackoff(time.Second, WithJitter(0.5))

	for i := 0; i < 20; i++ {
		d := b.Next(1)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	b := ConstantBackoff(2*time.Second, WithJitter(0))

	assert.Equal(t, time.Duration(0), b.Next(0))
	assert.Equal(t, 2*time.Second, b.Next(1))
	assert.Equal(t, 2*time.Second, b.Next(7))

	assert.Equal(t, 2*time.Second, ConstantBackoff(2*time.Second, WithJitter(0), WithMultiplier(5)).Next(3))
}

func TestNoBackoff(t *testing.T) {
	assert.Zero(t, NoBackoff().Next(5))
}

func TestBackoffOptions_IgnoreInvalid(t *testing.T) {
	b := ExponentialBackoff(time.Second, WithJitter(2), WithMultiplier(-1), WithMaxDelay(-time.Second))
	eb := b.(*backoff)

	assert.Equal(t, 0.2, eb.jitter)
	assert.Equal(t, 2.0, eb.multiplier)
	assert.Equal(t, 30*time.Second, eb.maxDelay)
}
