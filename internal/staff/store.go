package staff

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HerbHall/wardwatch/pkg/clearance"
	"github.com/HerbHall/wardwatch/pkg/models"
	"github.com/HerbHall/wardwatch/pkg/plugin"
)

// Member is one staff account as seen by the clearance directory.
type Member struct {
	ID         string          `json:"id" example:"st-0002"`
	StaffID    string          `json:"staff_id" example:"S1002"`
	Name       string          `json:"name" example:"Dr. Brian Okafor"`
	Department string          `json:"department,omitempty" example:"Internal Medicine"`
	Clearance  clearance.Level `json:"clearance_level" example:"L3"`
	Active     bool            `json:"active"`
}

// Store persists staff members in SQLite.
type Store struct {
	db plugin.Store
}

// NewStore runs the users migrations and returns a Store.
func NewStore(ctx context.Context, db plugin.Store) (*Store, error) {
	if err := db.Migrate(ctx, "users", migrations()); err != nil {
		return nil, fmt.Errorf("users migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create staff_members table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE staff_members (
						id              TEXT PRIMARY KEY,
						staff_id        TEXT NOT NULL UNIQUE,
						name            TEXT NOT NULL,
						department      TEXT NOT NULL DEFAULT '',
						clearance_level TEXT NOT NULL DEFAULT 'L1',
						active          INTEGER NOT NULL DEFAULT 1
					)`,
					`CREATE INDEX idx_staff_members_name ON staff_members(name)`,
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

const memberColumns = `id, staff_id, name, department, clearance_level, active`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (Member, error) {
	var (
		m     Member
		level string
	)
	if err := row.Scan(&m.ID, &m.StaffID, &m.Name, &m.Department, &level, &m.Active); err != nil {
		return Member{}, err
	}
	m.Clearance = clearance.Level(level)
	return m, nil
}

// Insert adds m. It reports whether a row was written; an existing id or
// staff id leaves the table unchanged.
func (s *Store) Insert(ctx context.Context, m Member) (bool, error) {
	res, err := s.db.DB().ExecContext(ctx,
		`INSERT OR IGNORE INTO staff_members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.StaffID, m.Name, m.Department, string(m.Clearance), m.Active,
	)
	if err != nil {
		return false, fmt.Errorf("insert staff member %s: %w", m.ID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Get returns the member with id or models.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Member, error) {
	m, err := scanMember(s.db.DB().QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM staff_members WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, fmt.Errorf("%w: user %s", models.ErrNotFound, id)
	}
	if err != nil {
		return Member{}, fmt.Errorf("get staff member %s: %w", id, err)
	}
	return m, nil
}

// List returns every member ordered by name.
func (s *Store) List(ctx context.Context) ([]Member, error) {
	return s.query(ctx, `SELECT `+memberColumns+` FROM staff_members ORDER BY name, id`)
}

// ListActive returns active members whose clearance is one of levels,
// ordered by name.
func (s *Store) ListActive(ctx context.Context, levels []clearance.Level) ([]Member, error) {
	if len(levels) == 0 {
		return []Member{}, nil
	}
	q := `SELECT ` + memberColumns + ` FROM staff_members WHERE active = 1 AND clearance_level IN (?`
	args := []any{string(levels[0])}
	for _, l := range levels[1:] {
		q += `, ?`
		args = append(args, string(l))
	}
	q += `) ORDER BY name, id`
	return s.query(ctx, q, args...)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Member, error) {
	rows, err := s.db.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list staff members: %w", err)
	}
	defer rows.Close()

	out := []Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetClearance changes a member's clearance and returns the level it
// replaced.
func (s *Store) SetClearance(ctx context.Context, id string, level clearance.Level) (clearance.Level, error) {
	var old string
	err := s.db.Tx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT clearance_level FROM staff_members WHERE id = ?`, id).Scan(&old)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: user %s", models.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE staff_members SET clearance_level = ? WHERE id = ?`, string(level), id)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("set clearance for %s: %w", id, err)
	}
	return clearance.Level(old), nil
}
