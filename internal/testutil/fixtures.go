// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"time"

	"github.com/HerbHall/wardwatch/pkg/models"
)

// NewSample returns a VitalSample with resting adult readings at the given
// time. Override fields with opts.
func NewSample(at time.Time, opts ...func(*models.VitalSample)) models.VitalSample {
	s := models.VitalSample{
		Timestamp:         float64(at.UnixNano()) / 1e9,
		HeartRate:         72,
		SystolicPressure:  120,
		DiastolicPressure: 80,
		OxygenSaturation:  97,
		RespirationRate:   16,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithHeartRate sets the sample heart rate.
func WithHeartRate(bpm int) func(*models.VitalSample) {
	return func(s *models.VitalSample) { s.HeartRate = bpm }
}

// WithPressure sets systolic and diastolic pressure.
func WithPressure(systolic, diastolic int) func(*models.VitalSample) {
	return func(s *models.VitalSample) {
		s.SystolicPressure = systolic
		s.DiastolicPressure = diastolic
	}
}

// Series returns n samples starting at first and step seconds apart, oldest
// first. Heart rates run baseHR, baseHR+1, ... so each sample is
// distinguishable.
func Series(n int, first, step float64, baseHR int) []models.VitalSample {
	out := make([]models.VitalSample, n)
	for i := range out {
		out[i] = models.VitalSample{
			Timestamp:         first + float64(i)*step,
			HeartRate:         baseHR + i,
			SystolicPressure:  120,
			DiastolicPressure: 80,
			OxygenSaturation:  97,
			RespirationRate:   16,
		}
	}
	return out
}

// NewBed returns an active Bed snapshot. Override fields with opts.
func NewBed(bedID string, opts ...func(*models.Bed)) models.Bed {
	b := models.Bed{
		BedID:       bedID,
		PatientID:   "P900",
		PatientName: "Jane Doe",
		IsActive:    true,
		LastUpdate:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// WithPatient sets the bed's patient.
func WithPatient(id, name string) func(*models.Bed) {
	return func(b *models.Bed) {
		b.PatientID = id
		b.PatientName = name
	}
}

// WithSamples sets the bed's cached samples.
func WithSamples(s ...models.VitalSample) func(*models.Bed) {
	return func(b *models.Bed) { b.RecentSamples = s }
}

// Inactive marks the bed inactive.
func Inactive(b *models.Bed) { b.IsActive = false }
