package authz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HerbHall/wardwatch/pkg/clearance"
	"github.com/HerbHall/wardwatch/pkg/models"
)

func caller(l clearance.Level) *Caller {
	return &Caller{UserID: "user-" + string(l), Clearance: l}
}

func TestRequire_AllPairs(t *testing.T) {
	for ci, c := range clearance.Levels {
		for ri, r := range clearance.Levels {
			t.Run(fmt.Sprintf("%s_vs_%s", c, r), func(t *testing.T) {
				err := Require(caller(c), r)
				if ci >= ri {
					require.NoError(t, err)
				} else {
					require.ErrorIs(t, err, models.ErrForbidden)
				}
			})
		}
	}
}

func TestRequire_MissingOrUnknownCaller(t *testing.T) {
	require.ErrorIs(t, Require(nil, clearance.L1), models.ErrUnauthorized)
	require.ErrorIs(t, Require(&Caller{Clearance: clearance.L4}, clearance.L1), models.ErrUnauthorized)
	require.ErrorIs(t, Require(&Caller{UserID: "u", Clearance: "L9"}, clearance.L1), models.ErrForbidden)
}

func TestCheck_AccessTable(t *testing.T) {
	tests := []struct {
		op      Operation
		allowed clearance.Level
	}{
		{ViewOwnActivity, clearance.L1},
		{ViewUserActivity, clearance.L3},
		{ViewAuditLog, clearance.L4},
		{ListBeds, clearance.L2},
		{ReadBed, clearance.L2},
		{ReadVitals, clearance.L2},
		{ReadHistory, clearance.L2},
		{AddBed, clearance.L3},
		{RemoveBed, clearance.L3},
		{ReassignPatient, clearance.L2},
		{SetBedActive, clearance.L2},
		{StreamVitals, clearance.L2},
		{ListStaff, clearance.L3},
		{ListDoctors, clearance.L1},
		{ChangeClearance, clearance.L3},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			for _, l := range clearance.Levels {
				err := Check(caller(l), tt.op)
				if clearance.AtLeast(l, tt.allowed) {
					require.NoError(t, err, l)
				} else {
					require.ErrorIs(t, err, models.ErrForbidden, l)
				}
			}
			require.ErrorIs(t, Check(nil, tt.op), models.ErrUnauthorized)
		})
	}
}

func TestCheck_UnknownOperation(t *testing.T) {
	require.ErrorIs(t, Check(caller(clearance.L4), "monitoring.explode"), models.ErrForbidden)
	require.ErrorIs(t, Check(nil, "monitoring.explode"), models.ErrUnauthorized)
}

func TestAuthorizeClearanceChange(t *testing.T) {
	tests := []struct {
		caller  clearance.Level
		target  clearance.Level
		wantErr error
	}{
		{clearance.L1, clearance.L1, models.ErrForbidden},
		{clearance.L2, clearance.L1, models.ErrForbidden},
		{clearance.L2, clearance.L2, models.ErrForbidden},
		{clearance.L3, clearance.L1, nil},
		{clearance.L3, clearance.L2, nil},
		{clearance.L3, clearance.L3, models.ErrForbidden},
		{clearance.L3, clearance.L4, models.ErrForbidden},
		{clearance.L4, clearance.L1, nil},
		{clearance.L4, clearance.L2, nil},
		{clearance.L4, clearance.L3, nil},
		{clearance.L4, clearance.L4, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_assigns_%s", tt.caller, tt.target), func(t *testing.T) {
			err := AuthorizeClearanceChange(caller(tt.caller), tt.target)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuthorizeClearanceChange_LevelGateFirst(t *testing.T) {
	// A low-level caller is rejected before the target level is examined.
	require.ErrorIs(t, AuthorizeClearanceChange(caller(clearance.L2), "bogus"), models.ErrForbidden)
	require.ErrorIs(t, AuthorizeClearanceChange(nil, clearance.L1), models.ErrUnauthorized)
	require.ErrorIs(t, AuthorizeClearanceChange(caller(clearance.L4), "L5"), models.ErrInvalidInput)
}

func TestCallerContext(t *testing.T) {
	ctx := context.Background()
	require.Nil(t, CallerFromContext(ctx))

	c := caller(clearance.L3)
	ctx = WithCaller(ctx, c)
	require.Same(t, c, CallerFromContext(ctx))
}
