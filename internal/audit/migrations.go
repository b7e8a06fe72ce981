package audit

import (
	"database/sql"

	"github.com/HerbHall/wardwatch/pkg/plugin"
)

// migrations returns the activity module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create audit_activity_log table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE audit_activity_log (
						seq                      INTEGER PRIMARY KEY AUTOINCREMENT,
						id                       TEXT NOT NULL UNIQUE,
						user_id                  TEXT NOT NULL,
						activity_type            TEXT NOT NULL,
						severity                 TEXT NOT NULL DEFAULT 'low',
						description              TEXT NOT NULL,
						target_user_id           TEXT NOT NULL DEFAULT '',
						target_patient_id        TEXT NOT NULL DEFAULT '',
						target_appointment_id    TEXT NOT NULL DEFAULT '',
						target_medical_record_id TEXT NOT NULL DEFAULT '',
						details                  TEXT NOT NULL DEFAULT '',
						ip_address               TEXT NOT NULL DEFAULT '',
						user_agent               TEXT NOT NULL DEFAULT '',
						created_at               INTEGER NOT NULL
					)`,
					`CREATE INDEX idx_audit_activity_user ON audit_activity_log(user_id, created_at)`,
					`CREATE INDEX idx_audit_activity_type ON audit_activity_log(activity_type, created_at)`,
					`CREATE INDEX idx_audit_activity_severity ON audit_activity_log(severity, created_at)`,
					`CREATE INDEX idx_audit_activity_created ON audit_activity_log(created_at)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Version:     2,
			Description: "reject updates and deletes on audit_activity_log",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TRIGGER audit_activity_log_no_update
						BEFORE UPDATE ON audit_activity_log
						BEGIN SELECT RAISE(ABORT, 'audit_activity_log is append-only'); END`,
					`CREATE TRIGGER audit_activity_log_no_delete
						BEFORE DELETE ON audit_activity_log
						BEGIN SELECT RAISE(ABORT, 'audit_activity_log is append-only'); END`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
