// Package timeseries stores per-bed vital-sign series and reads their
// tails and time windows. Two backends exist: CSV files on local disk and
// Redis sorted sets.
package timeseries

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/HerbHall/wardwatch/pkg/models"
)

// Source is the storage behind the monitoring registry. Implementations
// must be safe for concurrent use.
type Source interface {
	// ReadTail returns up to n most recent samples, oldest first.
	ReadTail(ctx context.Context, bedID string, n int) ([]models.VitalSample, error)
	// ReadWindow returns every sample with timestamp >= since, oldest first.
	// A bed without a series yields an empty result.
	ReadWindow(ctx context.Context, bedID string, since time.Time) ([]models.VitalSample, error)
	// Provision creates the bed's series, seeding synthetic history. An
	// existing series is left untouched.
	Provision(ctx context.Context, bedID, patientID, patientName string) error
	// Discard deletes the bed's series. Discarding a missing series succeeds.
	Discard(ctx context.Context, bedID string) error
}

// Appender is implemented by sources that accept new samples for an
// existing series.
type Appender interface {
	Append(ctx context.Context, bedID string, samples ...models.VitalSample) error
}

// ErrSeriesNotFound is returned by ReadTail when the bed has no series.
var ErrSeriesNotFound = fmt.Errorf("%w: series not found", models.ErrSourceUnavailable)

var bedIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateBedID rejects identifiers that cannot safely name a series.
func ValidateBedID(bedID string) error {
	if !bedIDPattern.MatchString(bedID) {
		return fmt.Errorf("%w: bed id %q must be 1-64 letters, digits, '-' or '_'", models.ErrInvalidInput, bedID)
	}
	return nil
}

func unavailable(op, bedID string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", models.ErrSourceUnavailable, op, bedID, err)
}

func tail(samples []models.VitalSample, n int) []models.VitalSample {
	if n > 0 && len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	out := make([]models.VitalSample, len(samples))
	copy(out, samples)
	return out
}

func since(samples []models.VitalSample, t time.Time) []models.VitalSample {
	cutoff := float64(t.UnixNano()) / 1e9
	out := make([]models.VitalSample, 0)
	for _, s := range samples {
		if s.Timestamp >= cutoff {
			out = append(out, s)
		}
	}
	return out
}
