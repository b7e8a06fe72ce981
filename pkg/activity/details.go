package activity

import "github.com/HerbHall/wardwatch/pkg/clearance"

// Details is a category-specific payload. The set of implementations is
// closed to this package.
type Details interface {
	allows(c Category) bool
}

// ClearanceChangeDetails accompanies user_clearance_changed.
type ClearanceChangeDetails struct {
	OldLevel clearance.Level `json:"old_level"`
	NewLevel clearance.Level `json:"new_level"`
}

func (ClearanceChangeDetails) allows(c Category) bool { return c == UserClearanceChanged }

// BedDetails accompanies bed additions, removals, and patient reassignment.
type BedDetails struct {
	BedID       string `json:"bed_id"`
	PatientID   string `json:"patient_id,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
}

func (BedDetails) allows(c Category) bool {
	return c == MonitorBedAdded || c == MonitorBedRemoved || c == MonitorPatientUpdated
}

// BedStatusDetails accompanies monitor_bed_status_changed.
type BedStatusDetails struct {
	BedID    string `json:"bed_id"`
	IsActive bool   `json:"is_active"`
}

func (BedStatusDetails) allows(c Category) bool { return c == MonitorBedStatusChanged }

// PatientDetails accompanies patient events. Changes maps field names to
// their new values.
type PatientDetails struct {
	PatientID   string            `json:"patient_id"`
	PatientName string            `json:"patient_name"`
	Changes     map[string]string `json:"changes,omitempty"`
}

func (PatientDetails) allows(c Category) bool {
	return c == PatientRegistered || c == PatientUpdated || c == PatientViewed
}

// AppointmentDetails accompanies appointment events.
type AppointmentDetails struct {
	AppointmentNumber string `json:"appointment_number"`
	PatientName       string `json:"patient_name,omitempty"`
	AppointmentDate   string `json:"appointment_date,omitempty"`
	OldStatus         string `json:"old_status,omitempty"`
	NewStatus         string `json:"new_status,omitempty"`
}

func (AppointmentDetails) allows(c Category) bool {
	switch c {
	case AppointmentCreated, AppointmentUpdated, AppointmentStatusChanged, AppointmentCancelled:
		return true
	}
	return false
}

// MedicalRecordDetails accompanies medical record events.
type MedicalRecordDetails struct {
	PatientName string `json:"patient_name"`
	Diagnosis   string `json:"diagnosis,omitempty"`
}

func (MedicalRecordDetails) allows(c Category) bool {
	return c == MedicalRecordCreated || c == MedicalRecordUpdated || c == MedicalRecordViewed
}

// AccessDeniedDetails accompanies access_denied.
type AccessDeniedDetails struct {
	AttemptedAction string `json:"attempted_action"`
	Reason          string `json:"reason"`
}

func (AccessDeniedDetails) allows(c Category) bool { return c == AccessDenied }

// SystemErrorDetails accompanies system_error.
type SystemErrorDetails struct {
	Context string `json:"context"`
	Error   string `json:"error"`
}

func (SystemErrorDetails) allows(c Category) bool { return c == SystemError }

// DataTransferDetails accompanies data_exported and data_imported.
type DataTransferDetails struct {
	Dataset     string `json:"dataset"`
	Format      string `json:"format,omitempty"`
	RecordCount int    `json:"record_count"`
}

func (DataTransferDetails) allows(c Category) bool { return c == DataExported || c == DataImported }
