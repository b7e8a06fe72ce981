package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/wardwatch/internal/store"
	"github.com/HerbHall/wardwatch/pkg/activity"
	"github.com/HerbHall/wardwatch/pkg/clearance"
)

var base = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background(), "activity", migrations()))
	return NewStore(db.DB())
}

func stamped(e activity.Event, id string, at time.Time) *activity.Event {
	e.ID = id
	e.CreatedAt = at
	if e.Severity == "" {
		e.Severity = activity.SeverityLow
	}
	return &e
}

func TestStore_InsertAndQueryNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, stamped(activity.Login("u1", "S-1"), "a", base)))
	require.NoError(t, s.Insert(ctx, stamped(activity.ClearanceChange("u4", "u1", clearance.L1, clearance.L2), "b", base.Add(time.Second))))
	require.NoError(t, s.Insert(ctx, stamped(activity.Logout("u1", "S-1"), "c", base.Add(2*time.Second))))

	got, err := s.Query(ctx, activity.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{got[0].ID, got[1].ID, got[2].ID})

	change := got[1]
	assert.Equal(t, "u4", change.ActorUserID)
	assert.Equal(t, "u1", change.TargetUserID)
	assert.Equal(t, activity.SeverityHigh, change.Severity)
	assert.JSONEq(t, `{"old_level":"L1","new_level":"L2"}`, string(change.Details))
	assert.True(t, change.CreatedAt.Equal(base.Add(time.Second)))

	assert.Nil(t, got[0].Details)
}

func TestStore_SameInstantKeepsInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, stamped(activity.Login("u1", "S"), "first", base)))
	require.NoError(t, s.Insert(ctx, stamped(activity.Logout("u1", "S"), "second", base)))

	got, err := s.Query(ctx, activity.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].ID)
}

func TestStore_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	events := []*activity.Event{
		stamped(activity.Login("u1", "S-1"), "e1", base),
		stamped(activity.Login("u2", "S-2"), "e2", base.Add(1*time.Minute)),
		stamped(activity.BedAdded("u2", "BED9", "P9", "Ada"), "e3", base.Add(2*time.Minute)),
		stamped(activity.Fault("u1", "monitoring", "boom"), "e4", base.Add(3*time.Minute)),
	}
	for _, e := range events {
		require.NoError(t, s.Insert(ctx, e))
	}

	tests := []struct {
		name   string
		filter activity.Filter
		want   []string
	}{
		{"actor", activity.Filter{ActorUserID: "u2"}, []string{"e3", "e2"}},
		{"category", activity.Filter{Category: activity.UserLogin}, []string{"e2", "e1"}},
		{"severity", activity.Filter{Severity: activity.SeverityCritical}, []string{"e4"}},
		{"inclusive window", activity.Filter{Start: base.Add(time.Minute), End: base.Add(2 * time.Minute)}, []string{"e3", "e2"}},
		{"start only", activity.Filter{Start: base.Add(3 * time.Minute)}, []string{"e4"}},
		{"combined", activity.Filter{ActorUserID: "u1", Category: activity.UserLogin}, []string{"e1"}},
		{"no match", activity.Filter{ActorUserID: "nobody"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.filter, 10)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_Limit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Insert(ctx, stamped(activity.Login("u1", "S"), id, base.Add(time.Duration(i)*time.Second))))
	}
	got, err := s.Query(ctx, activity.Filter{}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestStore_DuplicateIDRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, stamped(activity.Login("u1", "S"), "dup", base)))
	require.Error(t, s.Insert(ctx, stamped(activity.Logout("u1", "S"), "dup", base)))
}

func TestStore_RowsCannotBeRewritten(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, stamped(activity.Login("u1", "S"), "kept", base)))

	_, err := s.db.ExecContext(ctx, `UPDATE audit_activity_log SET user_id = 'u2' WHERE id = 'kept'`)
	require.ErrorContains(t, err, "append-only")
	_, err = s.db.ExecContext(ctx, `DELETE FROM audit_activity_log WHERE id = 'kept'`)
	require.ErrorContains(t, err, "append-only")

	got, err := s.Query(ctx, activity.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].ActorUserID)
}

func TestStore_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM audit_activity_log").
		WillReturnError(errors.New("disk I/O error"))

	_, err = NewStore(db).Query(context.Background(), activity.Filter{ActorUserID: "u1"}, 5)
	require.ErrorContains(t, err, "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}
