package monitor

// SeedBed describes a bed registered at startup.
type SeedBed struct {
	BedID       string
	PatientID   string
	PatientName string
}

// DefaultSeedBeds are the demonstration beds registered when seeding is on.
var DefaultSeedBeds = []SeedBed{
	{BedID: "BED001", PatientID: "P001", PatientName: "John Smith"},
	{BedID: "BED002", PatientID: "P002", PatientName: "Sarah Johnson"},
	{BedID: "BED003", PatientID: "P003", PatientName: "Michael Brown"},
	{BedID: "BED004", PatientID: "P004", PatientName: "Emily Davis"},
}
