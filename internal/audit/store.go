package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/wardwatch/pkg/activity"
)

// Store persists activity events in SQLite. Rows are only ever inserted.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by db. The schema must already be migrated.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert writes one validated event.
func (s *Store) Insert(ctx context.Context, e *activity.Event) error {
	details, err := e.EncodeDetails()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_activity_log (
			id, user_id, activity_type, severity, description,
			target_user_id, target_patient_id, target_appointment_id, target_medical_record_id,
			details, ip_address, user_agent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ActorUserID, string(e.Category), string(e.Severity), e.Description,
		e.TargetUserID, e.TargetPatientID, e.TargetAppointmentID, e.TargetMedicalRecordID,
		details, e.IPAddress, e.UserAgent, e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert activity %s: %w", e.ID, err)
	}
	return nil
}

// Query returns at most limit events matching every non-zero filter field,
// newest first. Time bounds are inclusive.
func (s *Store) Query(ctx context.Context, f activity.Filter, limit int) ([]activity.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.ActorUserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.ActorUserID)
	}
	if f.Category != "" {
		where = append(where, "activity_type = ?")
		args = append(args, string(f.Category))
	}
	if f.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, string(f.Severity))
	}
	if !f.Start.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Start.UnixNano())
	}
	if !f.End.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, f.End.UnixNano())
	}

	q := `SELECT id, user_id, activity_type, severity, description,
		target_user_id, target_patient_id, target_appointment_id, target_medical_record_id,
		details, ip_address, user_agent, created_at
		FROM audit_activity_log`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, seq DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	out := []activity.Record{}
	for rows.Next() {
		var (
			r          activity.Record
			category   string
			severity   string
			details    string
			createdAtN int64
		)
		if err := rows.Scan(
			&r.ID, &r.ActorUserID, &category, &severity, &r.Description,
			&r.TargetUserID, &r.TargetPatientID, &r.TargetAppointmentID, &r.TargetMedicalRecordID,
			&details, &r.IPAddress, &r.UserAgent, &createdAtN,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		r.Category = activity.Category(category)
		r.Severity = activity.Severity(severity)
		if details != "" {
			r.Details = []byte(details)
		}
		r.CreatedAt = time.Unix(0, createdAtN).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return out, nil
}
