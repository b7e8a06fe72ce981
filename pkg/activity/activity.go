// Package activity defines the WardWatch audit event model: the closed set of
// activity categories, severities, and the per-category detail payloads.
package activity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/HerbHall/wardwatch/pkg/models"
)

// Category classifies an activity event. The set is closed.
type Category string

const (
	// Staff accounts.
	UserRegistered       Category = "user_registered"
	UserLogin            Category = "user_login"
	UserLogout           Category = "user_logout"
	UserClearanceChanged Category = "user_clearance_changed"
	UserPasswordChanged  Category = "user_password_changed"

	// Patients.
	PatientRegistered Category = "patient_registered"
	PatientUpdated    Category = "patient_updated"
	PatientViewed     Category = "patient_viewed"

	// Appointments.
	AppointmentCreated       Category = "appointment_created"
	AppointmentUpdated       Category = "appointment_updated"
	AppointmentStatusChanged Category = "appointment_status_changed"
	AppointmentCancelled     Category = "appointment_cancelled"

	// Medical records.
	MedicalRecordCreated Category = "medical_record_created"
	MedicalRecordUpdated Category = "medical_record_updated"
	MedicalRecordViewed  Category = "medical_record_viewed"

	// Bedside monitoring.
	MonitorBedAdded         Category = "monitor_bed_added"
	MonitorBedRemoved       Category = "monitor_bed_removed"
	MonitorPatientUpdated   Category = "monitor_patient_updated"
	MonitorBedStatusChanged Category = "monitor_bed_status_changed"

	// System.
	SystemError  Category = "system_error"
	AccessDenied Category = "access_denied"
	DataExported Category = "data_exported"
	DataImported Category = "data_imported"
)

var validCategories = map[Category]bool{
	UserRegistered: true, UserLogin: true, UserLogout: true, UserClearanceChanged: true, UserPasswordChanged: true,
	PatientRegistered: true, PatientUpdated: true, PatientViewed: true,
	AppointmentCreated: true, AppointmentUpdated: true, AppointmentStatusChanged: true, AppointmentCancelled: true,
	MedicalRecordCreated: true, MedicalRecordUpdated: true, MedicalRecordViewed: true,
	MonitorBedAdded: true, MonitorBedRemoved: true, MonitorPatientUpdated: true, MonitorBedStatusChanged: true,
	SystemError: true, AccessDenied: true, DataExported: true, DataImported: true,
}

// Valid reports whether c is a declared category.
func (c Category) Valid() bool { return validCategories[c] }

// ParseCategory validates a category string supplied by a caller.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown activity category %q", models.ErrInvalidInput, s)
	}
	return c, nil
}

// Severity ranks how sensitive an event is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a declared severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ParseSeverity validates a severity string supplied by a caller.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.Valid() {
		return "", fmt.Errorf("%w: unknown severity %q", models.ErrInvalidInput, s)
	}
	return sev, nil
}

// Event is the write form of an activity event. ID and CreatedAt are
// assigned by the recorder; the event is immutable once recorded.
type Event struct {
	ID                    string
	ActorUserID           string
	Category              Category
	Severity              Severity
	Description           string
	TargetUserID          string
	TargetPatientID       string
	TargetAppointmentID   string
	TargetMedicalRecordID string
	Details               Details
	IPAddress             string
	UserAgent             string
	CreatedAt             time.Time
}

// From returns a copy of e carrying request provenance.
func (e Event) From(ipAddress, userAgent string) Event {
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}

// Validate checks the fields every event must carry and that the details
// payload belongs to the event's category.
func (e *Event) Validate() error {
	if e.ActorUserID == "" {
		return fmt.Errorf("%w: actor user id is required", models.ErrInvalidInput)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown activity category %q", models.ErrInvalidInput, e.Category)
	}
	if e.Severity != "" && !e.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", models.ErrInvalidInput, e.Severity)
	}
	if e.Description == "" {
		return fmt.Errorf("%w: description is required", models.ErrInvalidInput)
	}
	if e.Details != nil && !e.Details.allows(e.Category) {
		return fmt.Errorf("%w: %T is not a valid payload for %s", models.ErrInvalidInput, e.Details, e.Category)
	}
	return nil
}

// EncodeDetails serializes the details payload for storage. A nil payload
// encodes to the empty string.
func (e *Event) EncodeDetails() (string, error) {
	if e.Details == nil {
		return "", nil
	}
	b, err := json.Marshal(e.Details)
	if err != nil {
		return "", fmt.Errorf("encode %s details: %w", e.Category, err)
	}
	return string(b), nil
}

// Record is the read form of a persisted activity event. Details holds the
// stored JSON document unchanged.
type Record struct {
	ID                    string          `json:"id"`
	ActorUserID           string          `json:"user_id"`
	Category              Category        `json:"activity_type"`
	Severity              Severity        `json:"severity"`
	Description           string          `json:"description"`
	TargetUserID          string          `json:"target_user_id,omitempty"`
	TargetPatientID       string          `json:"target_patient_id,omitempty"`
	TargetAppointmentID   string          `json:"target_appointment_id,omitempty"`
	TargetMedicalRecordID string          `json:"target_medical_record_id,omitempty"`
	Details               json.RawMessage `json:"details,omitempty"`
	IPAddress             string          `json:"ip_address,omitempty"`
	UserAgent             string          `json:"user_agent,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

// Filter constrains an activity query. Zero-valued fields impose no
// constraint; time bounds are inclusive.
type Filter struct {
	ActorUserID string
	Category    Category
	Severity    Severity
	Start       time.Time
	End         time.Time
}
