package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/hanroad/hanroad/internal/errors"
)

type fakeUsageStore struct {
	counts map[string]int32
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{counts: map[string]int32{}}
}

func (f *fakeUsageStore) GetPronunciationUsage(_ context.Context, userID, usageDate string) (int32, error) {
	return f.counts[userID+"/"+usageDate], nil
}

func (f *fakeUsageStore) IncrementPronunciationUsage(_ context.Context, userID, usageDate string) (int32, error) {
	f.counts[userID+"/"+usageDate]++
	return f.counts[userID+"/"+usageDate], nil
}

func TestConsumePronunciation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)

	t.Run("consumes until the cap", func(t *testing.T) {
		svc := NewService(newFakeUsageStore()).WithLimit(3).WithClock(func() time.Time { return now })

		for want := int32(2); want >= 0; want-- {
			remaining, err := svc.ConsumePronunciation(ctx, "user-1")
			require.NoError(t, err)
			assert.Equal(t, want, remaining)
		}

		_, err := svc.ConsumePronunciation(ctx, "user-1")
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeQuotaExceeded))
	})

	t.Run("quota resets on the next utc day", func(t *testing.T) {
		clock := now
		svc := NewService(newFakeUsageStore()).WithLimit(1).WithClock(func() time.Time { return clock })

		_, err := svc.ConsumePronunciation(ctx, "user-1")
		require.NoError(t, err)
		_, err = svc.ConsumePronunciation(ctx, "user-1")
		require.Error(t, err)

		clock = clock.Add(time.Hour)
		remaining, err := svc.ConsumePronunciation(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, int32(0), remaining)
	})

	t.Run("users do not share quota", func(t *testing.T) {
		svc := NewService(newFakeUsageStore()).WithLimit(1).WithClock(func() time.Time { return now })

		_, err := svc.ConsumePronunciation(ctx, "user-1")
		require.NoError(t, err)
		remaining, err := svc.ConsumePronunciation(ctx, "user-2")
		require.NoError(t, err)
		assert.Equal(t, int32(0), remaining)
	})

	t.Run("remaining does not consume", func(t *testing.T) {
		svc := NewService(newFakeUsageStore()).WithLimit(5).WithClock(func() time.Time { return now })

		remaining, err := svc.RemainingPronunciation(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, int32(5), remaining)

		remaining, err = svc.RemainingPronunciation(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, int32(5), remaining)
	})
}
