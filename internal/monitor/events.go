package monitor

import (
	"time"

	"github.com/HerbHall/wardwatch/pkg/models"
)

// Event topics published by the monitoring module.
const (
	TopicVitalsRefreshed = "monitor.vitals.refreshed"
	TopicBedAdded        = "monitor.bed.added"
	TopicBedRemoved      = "monitor.bed.removed"
	TopicBedUpdated      = "monitor.bed.updated"
)

// VitalsRefreshedEvent is the payload of TopicVitalsRefreshed.
type VitalsRefreshedEvent struct {
	BedID      string              `json:"bed_id"`
	PatientID  string              `json:"patient_id"`
	Current    *models.VitalSample `json:"current_vitals"`
	SampleSize int                 `json:"sample_count"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// BedEvent is the payload of the bed lifecycle topics.
type BedEvent struct {
	Bed models.Bed `json:"bed"`
}
