package activity

import (
	"fmt"

	"github.com/HerbHall/wardwatch/pkg/clearance"
)

// Constructors for the events WardWatch call sites emit. Each fixes the
// category, severity, and payload shape for its kind of action.

// UserRegistration records a new staff account.
func UserRegistration(actorID, staffID, email string) Event {
	return Event{
		ActorUserID: actorID,
		Category:    UserRegistered,
		Severity:    SeverityMedium,
		Description: fmt.Sprintf("User registered: %s (%s)", staffID, email),
	}
}

// Login records a successful sign-in.
func Login(actorID, staffID string) Event {
	return Event{
		ActorUserID: actorID,
		Category:    UserLogin,
		Severity:    SeverityLow,
		Description: fmt.Sprintf("User logged in: %s", staffID),
	}
}

// Logout records a sign-out.
func Logout(actorID, staffID string) Event {
	return Event{
		ActorUserID: actorID,
		Category:    UserLogout,
		Severity:    SeverityLow,
		Description: fmt.Sprintf("User logged out: %s", staffID),
	}
}

// PasswordChange records a password change for a staff account.
func PasswordChange(actorID, staffID string) Event {
	return Event{
		ActorUserID: actorID,
		Category:    UserPasswordChanged,
		Severity:    SeverityMedium,
		Description: fmt.Sprintf("Password changed for user: %s", staffID),
	}
}

// ClearanceChange records an administrator changing another user's level.
func ClearanceChange(actorID, targetUserID string, oldLevel, newLevel clearance.Level) Event {
	return Event{
		ActorUserID:  actorID,
		Category:     UserClearanceChanged,
		Severity:     SeverityHigh,
		Description:  fmt.Sprintf("Clearance level changed from %s to %s", oldLevel, newLevel),
		TargetUserID: targetUserID,
		Details:      ClearanceChangeDetails{OldLevel: oldLevel, NewLevel: newLevel},
	}
}

// PatientRegistration records a new patient.
func PatientRegistration(actorID, patientID, patientName string) Event {
	return Event{
		ActorUserID:     actorID,
		Category:        PatientRegistered,
		Severity:        SeverityMedium,
		Description:     fmt.Sprintf("Patient registered: %s - %s", patientID, patientName),
		TargetPatientID: patientID,
		Details:         PatientDetails{PatientID: patientID, PatientName: patientName},
	}
}

// PatientUpdate records changes to a patient's demographics.
func PatientUpdate(actorID, patientID, patientName string, changes map[string]string) Event {
	return Event{
		ActorUserID:     actorID,
		Category:        PatientUpdated,
		Severity:        SeverityLow,
		Description:     fmt.Sprintf("Patient updated: %s - %s", patientID, patientName),
		TargetPatientID: patientID,
		Details:         PatientDetails{PatientID: patientID, PatientName: patientName, Changes: changes},
	}
}

// AppointmentCreation records a newly booked appointment.
func AppointmentCreation(actorID, appointmentNumber, patientName, appointmentDate string) Event {
	return Event{
		ActorUserID: actorID,
		Category:    AppointmentCreated,
		Severity:    SeverityMedium,
		Description: fmt.Sprintf("Appointment created: %s for %s on %s", appointmentNumber, patientName, appointmentDate),
		Details: AppointmentDetails{
			AppointmentNumber: appointmentNumber,
			PatientName:       patientName,
			AppointmentDate:   appointmentDate,
		},
	}
}

// AppointmentStatusChange records an appointment moving between states.
func AppointmentStatusChange(actorID, appointmentNumber, oldStatus, newStatus string) Event {
	return Event{
		ActorUserID: actorID,
		Category:    AppointmentStatusChanged,
		Severity:    SeverityMedium,
		Description: fmt.Sprintf("Appointment status changed: %s from %s to %s", appointmentNumber, oldStatus, newStatus),
		Details: AppointmentDetails{
			AppointmentNumber: appointmentNumber,
			OldStatus:         oldStatus,
			NewStatus:         newStatus,
		},
	}
}

// MedicalRecordCreation records a new medical record.
func MedicalRecordCreation(actorID, recordID, patientName, diagnosis string) Event {
	return Event{
		ActorUserID:           actorID,
		Category:              MedicalRecordCreated,
		Severity:              SeverityHigh,
		Description:           fmt.Sprintf("Medical record created for %s - Diagnosis: %s", patientName, diagnosis),
		TargetMedicalRecordID: recordID,
		Details:               MedicalRecordDetails{PatientName: patientName, Diagnosis: diagnosis},
	}
}

// BedAdded records a new monitoring bed.
func BedAdded(actorID, bedID, patientID, patientName string) Event {
	return Event{
		ActorUserID:     actorID,
		Category:        MonitorBedAdded,
		Severity:        SeverityMedium,
		Description:     fmt.Sprintf("New monitoring bed added: %s for patient %s", bedID, patientName),
		TargetPatientID: patientID,
		Details:         BedDetails{BedID: bedID, PatientID: patientID, PatientName: patientName},
	}
}

// BedRemoved records a monitoring bed being decommissioned.
func BedRemoved(actorID, bedID string) Event {
	return Event{
		ActorUserID: actorID,
		Category:    MonitorBedRemoved,
		Severity:    SeverityMedium,
		Description: fmt.Sprintf("Monitoring bed removed: %s", bedID),
		Details:     BedDetails{BedID: bedID},
	}
}

// BedPatientReassigned records a bed being associated with a different patient.
func BedPatientReassigned(actorID, bedID, patientID, patientName string) Event {
	return Event{
		ActorUserID:     actorID,
		Category:        MonitorPatientUpdated,
		Severity:        SeverityLow,
		Description:     fmt.Sprintf("Patient info updated for bed %s: %s", bedID, patientName),
		TargetPatientID: patientID,
		Details:         BedDetails{BedID: bedID, PatientID: patientID, PatientName: patientName},
	}
}

// BedStatusChange records a bed being activated or deactivated.
func BedStatusChange(actorID, bedID string, isActive bool) Event {
	state := "inactive"
	if isActive {
		state = "active"
	}
	return Event{
		ActorUserID: actorID,
		Category:    MonitorBedStatusChanged,
		Severity:    SeverityLow,
		Description: fmt.Sprintf("Bed %s status changed to %s", bedID, state),
		Details:     BedStatusDetails{BedID: bedID, IsActive: isActive},
	}
}

// Denied records an authorization denial. Call sites opt in; the gate
// itself never records denials.
func Denied(actorID, attemptedAction, reason string) Event {
	return Event{
		ActorUserID: actorID,
		Category:    AccessDenied,
		Severity:    SeverityHigh,
		Description: fmt.Sprintf("Access denied: %s - %s", attemptedAction, reason),
		Details:     AccessDeniedDetails{AttemptedAction: attemptedAction, Reason: reason},
	}
}

// Fault records an unexpected system failure.
func Fault(actorID, context, errMsg string) Event {
	return Event{
		ActorUserID: actorID,
		Category:    SystemError,
		Severity:    SeverityCritical,
		Description: fmt.Sprintf("System error in %s: %s", context, errMsg),
		Details:     SystemErrorDetails{Context: context, Error: errMsg},
	}
}

// Export records a bulk data export.
func Export(actorID, dataset, format string, count int) Event {
	return Event{
		ActorUserID: actorID,
		Category:    DataExported,
		Severity:    SeverityHigh,
		Description: fmt.Sprintf("Exported %d %s records as %s", count, dataset, format),
		Details:     DataTransferDetails{Dataset: dataset, Format: format, RecordCount: count},
	}
}

// Import records a bulk data import.
func Import(actorID, dataset, format string, count int) Event {
	return Event{
		ActorUserID: actorID,
		Category:    DataImported,
		Severity:    SeverityHigh,
		Description: fmt.Sprintf("Imported %d %s records from %s", count, dataset, format),
		Details:     DataTransferDetails{Dataset: dataset, Format: format, RecordCount: count},
	}
}
