package timeseries

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/pkg/models"
)

var (
	_ Source   = (*RedisSource)(nil)
	_ Appender = (*RedisSource)(nil)
)

const (
	redisKeyPrefix = "wardwatch:vitals:"
	provisionBatch = 1000
	abandonTimeout = 5 * time.Second
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RedisSource stores each bed's series in a sorted set scored by timestamp,
// with the encoded record as the member. A companion hash records the
// patient the series was provisioned for and marks the series as existing
// even when it holds no samples.
type RedisSource struct {
	client redis.UniversalClient
	synth  *Synthesizer
	now    func() time.Time
	logger *zap.Logger
}

// NewRedisClient builds a client from cfg.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// NewRedisSource wraps an existing client. The caller owns the client.
func NewRedisSource(client redis.UniversalClient, synth *Synthesizer, logger *zap.Logger) *RedisSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSource{client: client, synth: synth, now: time.Now, logger: logger}
}

func seriesKey(bedID string) string { return redisKeyPrefix + bedID }
func metaKey(bedID string) string   { return redisKeyPrefix + bedID + ":meta" }

// Ping checks connectivity.
func (r *RedisSource) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", models.ErrSourceUnavailable, err)
	}
	return nil
}

func (r *RedisSource) exists(ctx context.Context, bedID string) (bool, error) {
	n, err := r.client.Exists(ctx, metaKey(bedID)).Result()
	if err != nil {
		return false, unavailable("exists", bedID, err)
	}
	return n > 0, nil
}

// ReadTail implements Source.
func (r *RedisSource) ReadTail(ctx context.Context, bedID string, n int) ([]models.VitalSample, error) {
	if err := ValidateBedID(bedID); err != nil {
		return nil, err
	}
	ok, err := r.exists(ctx, bedID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSeriesNotFound, bedID)
	}

	start := int64(0)
	if n > 0 {
		start = -int64(n)
	}
	members, err := r.client.ZRange(ctx, seriesKey(bedID), start, -1).Result()
	if err != nil {
		return nil, unavailable("read tail", bedID, err)
	}
	return decodeMembers(bedID, members)
}

// ReadWindow implements Source.
func (r *RedisSource) ReadWindow(ctx context.Context, bedID string, t time.Time) ([]models.VitalSample, error) {
	if err := ValidateBedID(bedID); err != nil {
		return nil, err
	}
	cutoff := float64(t.UnixNano()) / 1e9
	members, err := r.client.ZRangeByScore(ctx, seriesKey(bedID), &redis.ZRangeBy{
		Min: strconv.FormatFloat(cutoff, 'f', -1, 64),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, unavailable("read window", bedID, err)
	}
	return decodeMembers(bedID, members)
}

func decodeMembers(bedID string, members []string) ([]models.VitalSample, error) {
	out := make([]models.VitalSample, 0, len(members))
	for _, m := range members {
		s, err := ParseLine(m)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", bedID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Provision implements Source. The meta hash marks a series as provisioned,
// so if anything after claiming it fails, both keys are removed and a later
// Provision seeds the series again.
func (r *RedisSource) Provision(ctx context.Context, bedID, patientID, patientName string) (err error) {
	if err := ValidateBedID(bedID); err != nil {
		return err
	}
	created, err := r.client.HSetNX(ctx, metaKey(bedID), "patient_id", patientID).Result()
	if err != nil {
		return unavailable("provision", bedID, err)
	}
	if !created {
		r.logger.Debug("series already provisioned", zap.String("bed_id", bedID))
		return nil
	}
	defer func() {
		if err != nil {
			r.abandon(ctx, bedID)
		}
	}()

	if err := r.client.HSet(ctx, metaKey(bedID),
		"patient_name", patientName,
		"provisioned_at", r.now().UTC().Format(time.RFC3339),
	).Err(); err != nil {
		return unavailable("provision", bedID, err)
	}

	var seed []models.VitalSample
	if r.synth != nil {
		seed = r.synth.Series(r.now())
	}
	for start := 0; start < len(seed); start += provisionBatch {
		end := min(start+provisionBatch, len(seed))
		if err := r.Append(ctx, bedID, seed[start:end]...); err != nil {
			return err
		}
	}

	r.logger.Info("series provisioned",
		zap.String("bed_id", bedID),
		zap.String("patient_id", patientID),
		zap.Int("seed_samples", len(seed)),
	)
	return nil
}

// abandon removes a partly provisioned series. It runs even when ctx was
// the reason provisioning failed.
func (r *RedisSource) abandon(ctx context.Context, bedID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abandonTimeout)
	defer cancel()
	if err := r.client.Del(ctx, seriesKey(bedID), metaKey(bedID)).Err(); err != nil {
		r.logger.Warn("failed to remove partly provisioned series",
			zap.String("bed_id", bedID), zap.Error(err))
	}
}

// Discard implements Source.
func (r *RedisSource) Discard(ctx context.Context, bedID string) error {
	if err := ValidateBedID(bedID); err != nil {
		return err
	}
	if err := r.client.Del(ctx, seriesKey(bedID), metaKey(bedID)).Err(); err != nil {
		return unavailable("discard", bedID, err)
	}
	return nil
}

// Append implements Appender.
func (r *RedisSource) Append(ctx context.Context, bedID string, samples ...models.VitalSample) error {
	if err := ValidateBedID(bedID); err != nil {
		return err
	}
	ok, err := r.exists(ctx, bedID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrSeriesNotFound, bedID)
	}
	if len(samples) == 0 {
		return nil
	}
	members := make([]redis.Z, len(samples))
	for i, s := range samples {
		members[i] = redis.Z{Score: s.Timestamp, Member: FormatLine(s)}
	}
	if err := r.client.ZAdd(ctx, seriesKey(bedID), members...).Err(); err != nil {
		return unavailable("append", bedID, err)
	}
	return nil
}
