package timeseries

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/internal/testutil"
	"github.com/HerbHall/wardwatch/pkg/models"
)

func newTestRedisSource(t *testing.T) (*RedisSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	src := NewRedisSource(client, NewSynthesizer(time.Hour, 10*time.Second, 1), zap.NewNop())
	src.now = func() time.Time { return fixedNow }
	return src, mr
}

func TestRedisSource_ProvisionAndReadTail(t *testing.T) {
	src, mr := newTestRedisSource(t)
	ctx := context.Background()

	require.NoError(t, src.Provision(ctx, "BED010", "P900", "Jane Doe"))
	require.True(t, mr.Exists("wardwatch:vitals:BED010"))
	require.Equal(t, "Jane Doe", mr.HGet("wardwatch:vitals:BED010:meta", "patient_name"))

	got, err := src.ReadTail(ctx, "BED010", 100)
	require.NoError(t, err)
	require.Len(t, got, 100)
	for i := 1; i < len(got); i++ {
		require.Greater(t, got[i].Timestamp, got[i-1].Timestamp)
	}

	all, err := src.ReadTail(ctx, "BED010", 0)
	require.NoError(t, err)
	require.Len(t, all, 360)
}

func TestRedisSource_ProvisionIsNoOpWhenPresent(t *testing.T) {
	src, mr := newTestRedisSource(t)
	ctx := context.Background()
	require.NoError(t, src.Provision(ctx, "BED010", "P900", "Jane Doe"))
	require.NoError(t, src.Provision(ctx, "BED010", "P901", "Someone Else"))

	require.Equal(t, "P900", mr.HGet("wardwatch:vitals:BED010:meta", "patient_id"))
	all, err := src.ReadTail(ctx, "BED010", 0)
	require.NoError(t, err)
	require.Len(t, all, 360)
}

// failCommand makes the next call of one Redis command fail.
type failCommand struct {
	name  string
	armed atomic.Bool
}

func (f *failCommand) DialHook(next redis.DialHook) redis.DialHook { return next }

func (f *failCommand) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == f.name && f.armed.CompareAndSwap(true, false) {
			err := errors.New("connection reset")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (f *failCommand) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

var _ redis.Hook = (*failCommand)(nil)

func TestRedisSource_FailedProvisionCanBeRetried(t *testing.T) {
	src, mr := newTestRedisSource(t)
	hook := &failCommand{name: "zadd"}
	hook.armed.Store(true)
	src.client.AddHook(hook)
	ctx := context.Background()

	err := src.Provision(ctx, "BED010", "P900", "Jane Doe")
	require.ErrorIs(t, err, models.ErrSourceUnavailable)
	require.False(t, mr.Exists("wardwatch:vitals:BED010:meta"))
	require.False(t, mr.Exists("wardwatch:vitals:BED010"))

	_, err = src.ReadTail(ctx, "BED010", 10)
	require.ErrorIs(t, err, ErrSeriesNotFound)

	require.NoError(t, src.Provision(ctx, "BED010", "P900", "Jane Doe"))
	all, err := src.ReadTail(ctx, "BED010", 0)
	require.NoError(t, err)
	require.Len(t, all, 360)
}

func TestRedisSource_DiscardThenProvisionStartsFresh(t *testing.T) {
	src, _ := newTestRedisSource(t)
	src.synth = nil
	ctx := context.Background()

	require.NoError(t, src.Provision(ctx, "BED010", "P900", "Jane Doe"))
	require.NoError(t, src.Append(ctx, "BED010", models.VitalSample{Timestamp: 1, HeartRate: 60}))
	require.NoError(t, src.Discard(ctx, "BED010"))
	require.NoError(t, src.Discard(ctx, "BED010"))

	_, err := src.ReadTail(ctx, "BED010", 5)
	require.ErrorIs(t, err, ErrSeriesNotFound)

	require.NoError(t, src.Provision(ctx, "BED010", "P900", "Jane Doe"))
	got, err := src.ReadTail(ctx, "BED010", 5)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRedisSource_ReadWindowInclusive(t *testing.T) {
	src, _ := newTestRedisSource(t)
	src.synth = nil
	ctx := context.Background()
	require.NoError(t, src.Provision(ctx, "BED010", "P900", "Jane Doe"))

	samples := testutil.Series(5, 1000, 10, 70)
	require.NoError(t, src.Append(ctx, "BED010", samples...))

	got, err := src.ReadWindow(ctx, "BED010", time.Unix(1020, 0))
	require.NoError(t, err)
	require.Equal(t, samples[2:], got)
}

func TestRedisSource_AppendRequiresSeries(t *testing.T) {
	src, _ := newTestRedisSource(t)
	err := src.Append(context.Background(), "BED404", models.VitalSample{Timestamp: 1})
	require.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestRedisSource_OutageIsSourceUnavailable(t *testing.T) {
	src, mr := newTestRedisSource(t)
	ctx := context.Background()
	require.NoError(t, src.Provision(ctx, "BED010", "P900", "Jane Doe"))

	mr.Close()

	_, err := src.ReadTail(ctx, "BED010", 10)
	require.ErrorIs(t, err, models.ErrSourceUnavailable)
	require.ErrorIs(t, src.Ping(ctx), models.ErrSourceUnavailable)
}

func TestRedisSource_CorruptMemberIsInternal(t *testing.T) {
	src, mr := newTestRedisSource(t)
	src.synth = nil
	ctx := context.Background()
	require.NoError(t, src.Provision(ctx, "BED010", "P900", "Jane Doe"))
	_, err := mr.ZAdd("wardwatch:vitals:BED010", 5, "garbage")
	require.NoError(t, err)

	_, err = src.ReadTail(ctx, "BED010", 10)
	require.ErrorIs(t, err, models.ErrInternal)
}
