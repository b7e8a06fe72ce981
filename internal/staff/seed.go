package staff

import "github.com/HerbHall/wardwatch/pkg/clearance"

// DefaultSeedStaff is the demonstration directory loaded when seed_staff
// is set.
var DefaultSeedStaff = []Member{
	{ID: "st-0001", StaffID: "S1001", Name: "Dr. Alice Chen", Department: "Cardiology", Clearance: clearance.L4, Active: true},
	{ID: "st-0002", StaffID: "S1002", Name: "Dr. Brian Okafor", Department: "Internal Medicine", Clearance: clearance.L3, Active: true},
	{ID: "st-0003", StaffID: "S1003", Name: "Dr. Carmen Ruiz", Department: "Pediatrics", Clearance: clearance.L2, Active: true},
	{ID: "st-0004", StaffID: "S1004", Name: "Dana Patel", Department: "Nursing", Clearance: clearance.L1, Active: true},
	{ID: "st-0005", StaffID: "S1005", Name: "Dr. Evan Brooks", Department: "Surgery", Clearance: clearance.L2, Active: false},
}
