package activity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HerbHall/wardwatch/pkg/clearance"
	"github.com/HerbHall/wardwatch/pkg/models"
)

func TestConstructors_ProduceValidEvents(t *testing.T) {
	events := []Event{
		UserRegistration("u1", "S-1", "a@example.org"),
		Login("u1", "S-1"),
		Logout("u1", "S-1"),
		PasswordChange("u1", "S-1"),
		ClearanceChange("u4", "u1", clearance.L1, clearance.L2),
		PatientRegistration("u1", "P1", "Jane Doe"),
		PatientUpdate("u1", "P1", "Jane Doe", map[string]string{"phone": "555"}),
		AppointmentCreation("u1", "A-1", "Jane Doe", "2026-10-15"),
		AppointmentStatusChange("u1", "A-1", "scheduled", "completed"),
		MedicalRecordCreation("u1", "MR-1", "Jane Doe", "flu"),
		BedAdded("u3", "BED010", "P900", "Jane Doe"),
		BedRemoved("u3", "BED010"),
		BedPatientReassigned("u2", "BED010", "P901", "John Roe"),
		BedStatusChange("u2", "BED010", false),
		Denied("u1", "change clearance", "insufficient clearance level"),
		Fault("u1", "monitoring", "boom"),
		Export("u4", "patients", "csv", 10),
		Import("u4", "patients", "csv", 10),
	}
	for _, ev := range events {
		ev := ev
		require.NoErrorf(t, ev.Validate(), "category %s", ev.Category)
		require.Truef(t, ev.Severity.Valid(), "category %s severity %q", ev.Category, ev.Severity)
	}
}

func TestConstructors_Severities(t *testing.T) {
	require.Equal(t, SeverityHigh, ClearanceChange("a", "b", clearance.L1, clearance.L2).Severity)
	require.Equal(t, SeverityLow, Login("a", "S").Severity)
	require.Equal(t, SeverityCritical, Fault("a", "ctx", "err").Severity)
	require.Equal(t, SeverityMedium, BedAdded("a", "B", "P", "N").Severity)
	require.Equal(t, SeverityLow, BedStatusChange("a", "B", true).Severity)
}

func TestValidate_RejectsMismatchedDetails(t *testing.T) {
	ev := Login("u1", "S-1")
	ev.Details = BedStatusDetails{BedID: "BED001"}
	err := ev.Validate()
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{"missing actor", Event{Category: UserLogin, Description: "x"}},
		{"unknown category", Event{ActorUserID: "u", Category: "bogus", Description: "x"}},
		{"unknown severity", Event{ActorUserID: "u", Category: UserLogin, Severity: "urgent", Description: "x"}},
		{"missing description", Event{ActorUserID: "u", Category: UserLogin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.ev.Validate(), models.ErrInvalidInput)
		})
	}
}

func TestEncodeDetails(t *testing.T) {
	ev := ClearanceChange("u4", "u1", clearance.L2, clearance.L3)
	raw, err := ev.EncodeDetails()
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.Equal(t, "L2", decoded["old_level"])
	require.Equal(t, "L3", decoded["new_level"])

	empty := Login("u1", "S")
	raw, err = empty.EncodeDetails()
	require.NoError(t, err)
	require.Empty(t, raw)
}

func TestParseCategoryAndSeverity(t *testing.T) {
	c, err := ParseCategory("monitor_bed_added")
	require.NoError(t, err)
	require.Equal(t, MonitorBedAdded, c)

	_, err = ParseCategory("monitor_bed_exploded")
	require.ErrorIs(t, err, models.ErrInvalidInput)

	s, err := ParseSeverity("critical")
	require.NoError(t, err)
	require.Equal(t, SeverityCritical, s)

	_, err = ParseSeverity("CRITICAL!")
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestEvent_From(t *testing.T) {
	ev := Login("u1", "S-1").From("10.0.0.5", "curl/8")
	require.Equal(t, "10.0.0.5", ev.IPAddress)
	require.Equal(t, "curl/8", ev.UserAgent)
}
