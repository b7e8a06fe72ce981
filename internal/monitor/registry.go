// Package monitor owns the set of monitored beds, keeps a bounded cache of
// each bed's newest vital signs, and refreshes those caches from the
// time-series source on a fixed period.
package monitor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/internal/timeseries"
	"github.com/HerbHall/wardwatch/pkg/models"
)

// entry is the registry's private record of one bed. Fields are guarded by
// Registry.mu. appliedSeq is the refresh tick whose result last replaced
// the cache.
type entry struct {
	bed        models.Bed
	appliedSeq uint64
}

// Registry is the authoritative set of beds. Reads return deep copies taken
// under the read lock, so callers never see a bed half way through an
// update. Add and Remove are serialized by a separate lifecycle lock
// because they perform source I/O, which never happens under mu.
type Registry struct {
	mu   sync.RWMutex
	beds map[string]*entry

	lifecycle sync.Mutex

	source   timeseries.Source
	capacity int
	now      func() time.Time
	logger   *zap.Logger
}

// NewRegistry returns an empty registry whose per-bed caches hold at most
// capacity samples.
func NewRegistry(source timeseries.Source, capacity int, logger *zap.Logger) *Registry {
	if capacity <= 0 {
		capacity = DefaultConfig().CacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		beds:     make(map[string]*entry),
		source:   source,
		capacity: capacity,
		now:      time.Now,
		logger:   logger,
	}
}

// Capacity is the per-bed cache bound.
func (r *Registry) Capacity() int { return r.capacity }

func copyBed(b *models.Bed) models.Bed {
	out := *b
	out.RecentSamples = make([]models.VitalSample, len(b.RecentSamples))
	copy(out.RecentSamples, b.RecentSamples)
	return out
}

// List returns every bed ordered by id.
func (r *Registry) List() []models.Bed {
	r.mu.RLock()
	out := make([]models.Bed, 0, len(r.beds))
	for _, e := range r.beds {
		out = append(out, copyBed(&e.bed))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].BedID < out[j].BedID })
	return out
}

// Get returns the bed or models.ErrNotFound.
func (r *Registry) Get(bedID string) (models.Bed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.beds[bedID]
	if !ok {
		return models.Bed{}, notFound(bedID)
	}
	return copyBed(&e.bed), nil
}

func notFound(bedID string) error {
	return fmt.Errorf("%w: bed %s", models.ErrNotFound, bedID)
}

func validatePatient(patientID, patientName string) error {
	if strings.TrimSpace(patientID) == "" {
		return fmt.Errorf("%w: patient id is required", models.ErrInvalidInput)
	}
	if strings.TrimSpace(patientName) == "" {
		return fmt.Errorf("%w: patient name is required", models.ErrInvalidInput)
	}
	return nil
}

// Add registers an active bed with an empty cache. The backing series is
// provisioned before the bed becomes visible; if provisioning fails the
// bed is not added. A duplicate id returns models.ErrAlreadyExists and
// leaves the existing bed unchanged.
func (r *Registry) Add(ctx context.Context, bedID, patientID, patientName string) (models.Bed, error) {
	if err := timeseries.ValidateBedID(bedID); err != nil {
		return models.Bed{}, err
	}
	if err := validatePatient(patientID, patientName); err != nil {
		return models.Bed{}, err
	}

	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.RLock()
	_, exists := r.beds[bedID]
	r.mu.RUnlock()
	if exists {
		return models.Bed{}, fmt.Errorf("%w: bed %s", models.ErrAlreadyExists, bedID)
	}

	if err := r.source.Provision(ctx, bedID, patientID, patientName); err != nil {
		return models.Bed{}, fmt.Errorf("provision bed %s: %w", bedID, err)
	}

	e := &entry{bed: models.Bed{
		BedID:         bedID,
		PatientID:     patientID,
		PatientName:   patientName,
		IsActive:      true,
		LastUpdate:    r.now(),
		RecentSamples: []models.VitalSample{},
	}}
	r.mu.Lock()
	r.beds[bedID] = e
	r.updateGaugeLocked()
	out := copyBed(&e.bed)
	r.mu.Unlock()

	r.logger.Info("bed added", zap.String("bed_id", bedID), zap.String("patient_id", patientID))
	return out, nil
}

// Remove discards the bed's backing series and then the bed itself. If the
// series cannot be discarded the bed is kept and the error returned. Once
// Remove returns nil the bed is gone for good: a refresh in flight for it
// is dropped when it tries to apply.
func (r *Registry) Remove(ctx context.Context, bedID string) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.RLock()
	_, exists := r.beds[bedID]
	r.mu.RUnlock()
	if !exists {
		return notFound(bedID)
	}

	if err := r.source.Discard(ctx, bedID); err != nil {
		return fmt.Errorf("discard bed %s: %w", bedID, err)
	}

	r.mu.Lock()
	delete(r.beds, bedID)
	r.updateGaugeLocked()
	r.mu.Unlock()

	r.logger.Info("bed removed", zap.String("bed_id", bedID))
	return nil
}

// ReassignPatient changes the patient associated with a bed. Cached samples
// are kept.
func (r *Registry) ReassignPatient(bedID, patientID, patientName string) (models.Bed, error) {
	if err := validatePatient(patientID, patientName); err != nil {
		return models.Bed{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.beds[bedID]
	if !ok {
		return models.Bed{}, notFound(bedID)
	}
	e.bed.PatientID = patientID
	e.bed.PatientName = patientName
	return copyBed(&e.bed), nil
}

// SetActive toggles refreshing for a bed. An inactive bed keeps its cache
// and stays readable.
func (r *Registry) SetActive(bedID string, active bool) (models.Bed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.beds[bedID]
	if !ok {
		return models.Bed{}, notFound(bedID)
	}
	e.bed.IsActive = active
	r.updateGaugeLocked()
	return copyBed(&e.bed), nil
}

// RecentSamples returns up to limit of the newest cached samples, oldest
// first. limit <= 0 or above the cache capacity means the whole cache. An
// unknown bed yields an empty result.
func (r *Registry) RecentSamples(bedID string, limit int) []models.VitalSample {
	if limit <= 0 || limit > r.capacity {
		limit = r.capacity
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.beds[bedID]
	if !ok {
		return []models.VitalSample{}
	}
	src := e.bed.RecentSamples
	if len(src) > limit {
		src = src[len(src)-limit:]
	}
	out := make([]models.VitalSample, len(src))
	copy(out, src)
	return out
}

// CurrentVitals returns the newest cached sample, nil when the cache is
// empty, or models.ErrNotFound for an unknown bed.
func (r *Registry) CurrentVitals(bedID string) (*models.VitalSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.beds[bedID]
	if !ok {
		return nil, notFound(bedID)
	}
	return e.bed.CurrentVitals(), nil
}

// maxHistoryHours bounds a history window; longer windows are clamped.
const maxHistoryHours = 100 * 366 * 24

// History returns the samples recorded in the last hours hours, read from
// the source rather than the cache.
func (r *Registry) History(ctx context.Context, bedID string, hours float64) ([]models.VitalSample, error) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return nil, fmt.Errorf("%w: hours must be a positive number", models.ErrInvalidInput)
	}
	hours = min(hours, maxHistoryHours)
	window := time.Duration(hours * float64(time.Hour))
	return r.HistorySince(ctx, bedID, r.now().Add(-window))
}

// HistorySince returns every sample with timestamp >= since, oldest first.
func (r *Registry) HistorySince(ctx context.Context, bedID string, since time.Time) ([]models.VitalSample, error) {
	r.mu.RLock()
	_, ok := r.beds[bedID]
	r.mu.RUnlock()
	if !ok {
		return nil, notFound(bedID)
	}
	samples, err := r.source.ReadWindow(ctx, bedID, since)
	if err != nil {
		return nil, fmt.Errorf("history for bed %s: %w", bedID, err)
	}
	return samples, nil
}

// target identifies one bed to refresh. The entry pointer distinguishes a
// bed from a later bed registered under the same id.
type target struct {
	bedID string
	entry *entry
}

func (r *Registry) activeTargets() []target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]target, 0, len(r.beds))
	for id, e := range r.beds {
		if e.bed.IsActive {
			out = append(out, target{bedID: id, entry: e})
		}
	}
	return out
}

// apply installs a refresh result computed by tick seq and returns the
// updated bed. It reports false, leaving the registry untouched, when the
// bed was removed or replaced, was deactivated, or already holds a result
// from a newer tick.
func (r *Registry) apply(t target, seq uint64, samples []models.VitalSample, at time.Time) (models.Bed, bool) {
	if len(samples) > r.capacity {
		samples = samples[len(samples)-r.capacity:]
	}
	cached := make([]models.VitalSample, len(samples))
	copy(cached, samples)

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.beds[t.bedID]
	if !ok || e != t.entry || !e.bed.IsActive || seq <= e.appliedSeq {
		return models.Bed{}, false
	}
	e.bed.RecentSamples = cached
	e.bed.LastUpdate = at
	e.appliedSeq = seq
	return models.Bed{
		BedID:         e.bed.BedID,
		PatientID:     e.bed.PatientID,
		PatientName:   e.bed.PatientName,
		IsActive:      e.bed.IsActive,
		LastUpdate:    at,
		RecentSamples: cached,
	}, true
}

func (r *Registry) updateGaugeLocked() {
	var active, inactive int
	for _, e := range r.beds {
		if e.bed.IsActive {
			active++
		} else {
			inactive++
		}
	}
	bedsGauge.WithLabelValues("active").Set(float64(active))
	bedsGauge.WithLabelValues("inactive").Set(float64(inactive))
}
