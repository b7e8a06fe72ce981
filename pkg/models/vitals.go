package models

import "time"

// VitalSample is one timestamped set of physiological readings for a bed.
// Timestamp is in seconds since the Unix epoch, with a fractional part.
type VitalSample struct {
	Timestamp         float64 `json:"timestamp" example:"1760000000.5"`
	HeartRate         int     `json:"heart_rate" example:"72"`
	SystolicPressure  int     `json:"systolic_pressure" example:"121"`
	DiastolicPressure int     `json:"diastolic_pressure" example:"79"`
	OxygenSaturation  int     `json:"oxygen_saturation" example:"97"`
	RespirationRate   int     `json:"respiration_rate" example:"16"`
}

// Time returns the sample timestamp as a time.Time.
func (s VitalSample) Time() time.Time {
	sec := int64(s.Timestamp)
	nsec := int64((s.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// Bed is a snapshot of one monitored bed slot. RecentSamples is a bounded cache
// of the newest samples, oldest first.
type Bed struct {
	BedID         string        `json:"bed_id" example:"BED001"`
	PatientID     string        `json:"patient_id" example:"P001"`
	PatientName   string        `json:"patient_name" example:"John Smith"`
	IsActive      bool          `json:"is_active"`
	LastUpdate    time.Time     `json:"last_update"`
	RecentSamples []VitalSample `json:"recent_samples,omitempty"`
}

// CurrentVitals returns the newest cached sample, or nil if the cache is empty.
func (b *Bed) CurrentVitals() *VitalSample {
	if len(b.RecentSamples) == 0 {
		return nil
	}
	s := b.RecentSamples[len(b.RecentSamples)-1]
	return &s
}
