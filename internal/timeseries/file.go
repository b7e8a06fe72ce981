package timeseries

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/pkg/models"
)

var (
	_ Source   = (*FileSource)(nil)
	_ Appender = (*FileSource)(nil)
)

// FileSource keeps one CSV file per bed under a directory. Parsed series
// are cached and revalidated against the file's size and mtime, so an
// unchanged file is parsed once no matter how often it is polled.
type FileSource struct {
	dir    string
	synth  *Synthesizer
	cache  *lru.Cache[string, parsedSeries]
	now    func() time.Time
	logger *zap.Logger

	writeMu sync.Mutex // serializes writers; readers go through the cache
}

type parsedSeries struct {
	modTime time.Time
	size    int64
	samples []models.VitalSample
}

// NewFileSource creates dir if needed. cacheEntries bounds how many parsed
// series stay in memory.
func NewFileSource(dir string, cacheEntries int, synth *Synthesizer, logger *zap.Logger) (*FileSource, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create series directory %q: %w", dir, err)
	}
	if cacheEntries <= 0 {
		cacheEntries = 64
	}
	cache, err := lru.New[string, parsedSeries](cacheEntries)
	if err != nil {
		return nil, fmt.Errorf("create parse cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{
		dir:    dir,
		synth:  synth,
		cache:  cache,
		now:    time.Now,
		logger: logger,
	}, nil
}

func (f *FileSource) path(bedID string) string {
	return filepath.Join(f.dir, bedID+".csv")
}

// ReadTail implements Source.
func (f *FileSource) ReadTail(ctx context.Context, bedID string, n int) ([]models.VitalSample, error) {
	samples, err := f.load(ctx, bedID)
	if err != nil {
		return nil, err
	}
	return tail(samples, n), nil
}

// ReadWindow implements Source.
func (f *FileSource) ReadWindow(ctx context.Context, bedID string, t time.Time) ([]models.VitalSample, error) {
	samples, err := f.load(ctx, bedID)
	if errors.Is(err, ErrSeriesNotFound) {
		return []models.VitalSample{}, nil
	}
	if err != nil {
		return nil, err
	}
	return since(samples, t), nil
}

func (f *FileSource) load(ctx context.Context, bedID string) ([]models.VitalSample, error) {
	if err := ValidateBedID(bedID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable("read", bedID, err)
	}

	p := f.path(bedID)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		f.cache.Remove(bedID)
		return nil, fmt.Errorf("%w: %s", ErrSeriesNotFound, bedID)
	}
	if err != nil {
		return nil, unavailable("stat", bedID, err)
	}

	if cached, ok := f.cache.Get(bedID); ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.samples, nil
	}

	file, err := os.Open(p)
	if err != nil {
		return nil, unavailable("open", bedID, err)
	}
	defer file.Close()

	samples, err := Decode(bufio.NewReader(file))
	if err != nil {
		if errors.Is(err, models.ErrInternal) {
			return nil, fmt.Errorf("series %s: %w", bedID, err)
		}
		return nil, unavailable("read", bedID, err)
	}
	f.cache.Add(bedID, parsedSeries{modTime: info.ModTime(), size: info.Size(), samples: samples})
	return samples, nil
}

// Provision implements Source. The file is written to a temporary name and
// renamed into place so readers never observe a partial series.
func (f *FileSource) Provision(ctx context.Context, bedID, patientID, patientName string) error {
	if err := ValidateBedID(bedID); err != nil {
		return err
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	p := f.path(bedID)
	if _, err := os.Stat(p); err == nil {
		f.logger.Debug("series already provisioned", zap.String("bed_id", bedID))
		return nil
	}

	var seed []models.VitalSample
	if f.synth != nil {
		seed = f.synth.Series(f.now())
	}
	if err := ctx.Err(); err != nil {
		return unavailable("provision", bedID, err)
	}

	tmp, err := os.CreateTemp(f.dir, bedID+".*.tmp")
	if err != nil {
		return unavailable("provision", bedID, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := Encode(w, seed); err != nil {
		tmp.Close()
		return unavailable("provision", bedID, err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return unavailable("provision", bedID, err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable("provision", bedID, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return unavailable("provision", bedID, err)
	}
	f.cache.Remove(bedID)

	f.logger.Info("series provisioned",
		zap.String("bed_id", bedID),
		zap.String("patient_id", patientID),
		zap.Int("seed_samples", len(seed)),
	)
	return nil
}

// Discard implements Source.
func (f *FileSource) Discard(_ context.Context, bedID string) error {
	if err := ValidateBedID(bedID); err != nil {
		return err
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	f.cache.Remove(bedID)
	if err := os.Remove(f.path(bedID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return unavailable("discard", bedID, err)
	}
	return nil
}

// Append adds samples to the end of an existing series.
func (f *FileSource) Append(ctx context.Context, bedID string, samples ...models.VitalSample) error {
	if err := ValidateBedID(bedID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable("append", bedID, err)
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	file, err := os.OpenFile(f.path(bedID), os.O_WRONLY|os.O_APPEND, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSeriesNotFound, bedID)
	}
	if err != nil {
		return unavailable("append", bedID, err)
	}

	cw := csv.NewWriter(file)
	if err := writeRecords(cw, samples); err != nil {
		file.Close()
		return unavailable("append", bedID, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		file.Close()
		return unavailable("append", bedID, err)
	}
	if err := file.Close(); err != nil {
		return unavailable("append", bedID, err)
	}
	return nil
}
