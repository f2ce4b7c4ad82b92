package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(threshold int) (*Breaker, *time.Time) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{FailureThreshold: threshold, ResetTimeout: 30 * time.Second})
	b.nowFunc = func() time.Time { return now }
	return b, &now
}

func failingCall(ctx context.Context, b *Breaker) error {
	_, err := Call(ctx, b, func(context.Context) (int, error) {
		return 0, NewTransientError(eris.New("overloaded"), 529)
	})
	return err
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Equal(t, BreakerClosed, b.State())
		require.Error(t, failingCall(ctx, b))
	}
	assert.Equal(t, BreakerOpen, b.State())

	// Calls are now rejected without reaching the provider.
	called := false
	_, err := Call(ctx, b, func(context.Context) (int, error) {
		called = true
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3)
	ctx := context.Background()

	require.Error(t, failingCall(ctx, b))
	require.Error(t, failingCall(ctx, b))
	_, err := Call(ctx, b, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	require.Error(t, failingCall(ctx, b))
	require.Error(t, failingCall(ctx, b))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_NonTransientErrorsDoNotTrip(t *testing.T) {
	b, _ := newTestBreaker(2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := Call(ctx, b, func(context.Context) (int, error) {
			return 0, eris.New("invalid request")
		})
		require.Error(t, err)
	}
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_HalfOpenProbeRecovers(t *testing.T) {
	b, now := newTestBreaker(1)
	ctx := context.Background()

	require.Error(t, failingCall(ctx, b))
	assert.Equal(t, BreakerOpen, b.State())

	*now = now.Add(31 * time.Second)
	assert.Equal(t, BreakerHalfOpen, b.State())

	// A successful probe closes the breaker.
	_, err := Call(ctx, b, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b, now := newTestBreaker(1)
	ctx := context.Background()

	require.Error(t, failingCall(ctx, b))
	*now = now.Add(31 * time.Second)

	require.Error(t, failingCall(ctx, b))
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(1)

	require.Error(t, failingCall(context.Background(), b))
	assert.Equal(t, BreakerOpen, b.State())

	b.Reset()
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		OnStateChange: func(from, to BreakerState) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})

	require.Error(t, failingCall(context.Background(), b))
	assert.Equal(t, []string{"closed>open"}, transitions)
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "half-open", BreakerHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(99).String())
}
