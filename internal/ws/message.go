package ws

import (
	"time"

	"github.com/HerbHall/wardwatch/pkg/models"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageVitalsRefreshed MessageType = "vitals.refreshed"
	MessageBedAdded        MessageType = "bed.added"
	MessageBedRemoved      MessageType = "bed.removed"
	MessageBedUpdated      MessageType = "bed.updated"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	BedID     string      `json:"bed_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// VitalsData is the payload for vitals.refreshed messages.
type VitalsData struct {
	PatientID   string              `json:"patient_id"`
	Current     *models.VitalSample `json:"current_vitals"`
	SampleCount int                 `json:"sample_count"`
}

// BedData is the payload for bed lifecycle messages.
type BedData struct {
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
	IsActive    bool   `json:"is_active"`
}
