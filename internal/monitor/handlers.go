package monitor

import (
	"net/http"
	"time"

	"github.com/HerbHall/wardwatch/internal/authz"
	"github.com/HerbHall/wardwatch/internal/server"
	"github.com/HerbHall/wardwatch/pkg/activity"
	"github.com/HerbHall/wardwatch/pkg/models"
	"github.com/HerbHall/wardwatch/pkg/plugin"
)

const defaultHistoryHours = 24

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "", Handler: m.handleListBeds},
		{Method: "POST", Path: "", Handler: m.handleAddBed},
		{Method: "GET", Path: "/{bed_id}", Handler: m.handleGetBed},
		{Method: "DELETE", Path: "/{bed_id}", Handler: m.handleRemoveBed},
		{Method: "GET", Path: "/{bed_id}/vitals", Handler: m.handleVitals},
		{Method: "GET", Path: "/{bed_id}/history", Handler: m.handleHistory},
		{Method: "PUT", Path: "/{bed_id}/patient", Handler: m.handleReassignPatient},
		{Method: "PUT", Path: "/{bed_id}/status", Handler: m.handleSetStatus},
	}
}

// BedSummary is the API view of a bed.
type BedSummary struct {
	BedID         string              `json:"bed_id" example:"BED001"`
	PatientID     string              `json:"patient_id" example:"P001"`
	PatientName   string              `json:"patient_name" example:"John Smith"`
	IsActive      bool                `json:"is_active"`
	LastUpdate    time.Time           `json:"last_update"`
	CurrentVitals *models.VitalSample `json:"current_vitals"`
}

func summarize(b *models.Bed) BedSummary {
	return BedSummary{
		BedID:         b.BedID,
		PatientID:     b.PatientID,
		PatientName:   b.PatientName,
		IsActive:      b.IsActive,
		LastUpdate:    b.LastUpdate,
		CurrentVitals: b.CurrentVitals(),
	}
}

// VitalsResponse is returned by the vitals and history endpoints.
type VitalsResponse struct {
	BedID      string               `json:"bed_id" example:"BED001"`
	VitalSigns []models.VitalSample `json:"vital_signs"`
	Count      int                  `json:"count" example:"100"`
	Hours      float64              `json:"hours,omitempty" example:"24"`
}

// AddBedRequest is the request body for POST /monitoring.
type AddBedRequest struct {
	BedID       string `json:"bed_id" validate:"required,max=64" example:"BED005"`
	PatientID   string `json:"patient_id" validate:"required,max=64" example:"P005"`
	PatientName string `json:"patient_name" validate:"required,max=200" example:"Ada Lovelace"`
}

// ReassignPatientRequest is the request body for PUT /monitoring/{bed_id}/patient.
type ReassignPatientRequest struct {
	PatientID   string `json:"patient_id" validate:"required,max=64" example:"P009"`
	PatientName string `json:"patient_name" validate:"required,max=200" example:"Grace Hopper"`
}

// SetStatusRequest is the request body for PUT /monitoring/{bed_id}/status.
// IsActive is a pointer so that an absent field is rejected rather than read
// as false.
type SetStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// authorize resolves the caller and checks op, writing the problem response
// on failure.
func (m *Module) authorize(w http.ResponseWriter, r *http.Request, op authz.Operation) (*authz.Caller, bool) {
	caller := authz.CallerFromContext(r.Context())
	if err := authz.Check(caller, op); err != nil {
		server.WriteError(w, r, m.logger, err)
		return nil, false
	}
	return caller, true
}

func (m *Module) record(r *http.Request, e activity.Event) {
	m.recorder.Record(r.Context(), e.From(server.ClientIP(r), r.UserAgent()))
}

// handleListBeds returns every bed with its newest sample.
//
//	@Summary		List beds
//	@Tags			monitoring
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		BedSummary
//	@Failure		401	{object}	models.APIProblem
//	@Failure		403	{object}	models.APIProblem
//	@Router			/monitoring [get]
func (m *Module) handleListBeds(w http.ResponseWriter, r *http.Request) {
	if _, ok := m.authorize(w, r, authz.ListBeds); !ok {
		return
	}
	beds := m.registry.List()
	out := make([]BedSummary, 0, len(beds))
	for i := range beds {
		out = append(out, summarize(&beds[i]))
	}
	server.WriteJSON(w, http.StatusOK, out)
}

// handleGetBed returns one bed.
//
//	@Summary		Get bed
//	@Tags			monitoring
//	@Produce		json
//	@Security		BearerAuth
//	@Param			bed_id	path		string	true	"Bed ID"
//	@Success		200		{object}	BedSummary
//	@Failure		404		{object}	models.APIProblem
//	@Router			/monitoring/{bed_id} [get]
func (m *Module) handleGetBed(w http.ResponseWriter, r *http.Request) {
	if _, ok := m.authorize(w, r, authz.ReadBed); !ok {
		return
	}
	bed, err := m.registry.Get(r.PathValue("bed_id"))
	if err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, summarize(&bed))
}

// handleVitals returns the newest cached samples for a bed. An unknown bed
// yields an empty list.
//
//	@Summary		Recent vitals
//	@Tags			monitoring
//	@Produce		json
//	@Security		BearerAuth
//	@Param			bed_id	path		string	true	"Bed ID"
//	@Param			limit	query		int		false	"Max samples"	default(100)
//	@Success		200		{object}	VitalsResponse
//	@Router			/monitoring/{bed_id}/vitals [get]
func (m *Module) handleVitals(w http.ResponseWriter, r *http.Request) {
	if _, ok := m.authorize(w, r, authz.ReadVitals); !ok {
		return
	}
	limit, err := server.QueryInt(r, "limit", m.registry.Capacity())
	if err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	bedID := r.PathValue("bed_id")
	samples := m.registry.RecentSamples(bedID, limit)
	server.WriteJSON(w, http.StatusOK, VitalsResponse{
		BedID:      bedID,
		VitalSigns: samples,
		Count:      len(samples),
	})
}

// handleHistory reads a time window straight from the source.
//
//	@Summary		Vitals history
//	@Tags			monitoring
//	@Produce		json
//	@Security		BearerAuth
//	@Param			bed_id	path		string	true	"Bed ID"
//	@Param			hours	query		number	false	"Window length in hours"	default(24)
//	@Success		200		{object}	VitalsResponse
//	@Failure		400		{object}	models.APIProblem
//	@Failure		404		{object}	models.APIProblem
//	@Failure		503		{object}	models.APIProblem
//	@Router			/monitoring/{bed_id}/history [get]
func (m *Module) handleHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := m.authorize(w, r, authz.ReadHistory); !ok {
		return
	}
	hours, err := server.QueryFloat(r, "hours", defaultHistoryHours)
	if err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	bedID := r.PathValue("bed_id")
	samples, err := m.registry.History(r.Context(), bedID, hours)
	if err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, VitalsResponse{
		BedID:      bedID,
		VitalSigns: samples,
		Count:      len(samples),
		Hours:      hours,
	})
}

// handleAddBed provisions a new bed.
//
//	@Summary		Add bed
//	@Tags			monitoring
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		AddBedRequest	true	"Bed to add"
//	@Success		201		{object}	BedSummary
//	@Failure		400		{object}	models.APIProblem
//	@Failure		409		{object}	models.APIProblem
//	@Failure		503		{object}	models.APIProblem
//	@Router			/monitoring [post]
func (m *Module) handleAddBed(w http.ResponseWriter, r *http.Request) {
	caller, ok := m.authorize(w, r, authz.AddBed)
	if !ok {
		return
	}
	var req AddBedRequest
	if err := server.DecodeJSON(w, r, &req); err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	bed, err := m.registry.Add(r.Context(), req.BedID, req.PatientID, req.PatientName)
	if err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	m.record(r, activity.BedAdded(caller.UserID, bed.BedID, bed.PatientID, bed.PatientName))
	m.publish(r.Context(), TopicBedAdded, bed)
	server.WriteJSON(w, http.StatusCreated, summarize(&bed))
}

// handleRemoveBed removes a bed and deletes its series.
//
//	@Summary		Remove bed
//	@Tags			monitoring
//	@Security		BearerAuth
//	@Param			bed_id	path	string	true	"Bed ID"
//	@Success		204
//	@Failure		404	{object}	models.APIProblem
//	@Failure		503	{object}	models.APIProblem
//	@Router			/monitoring/{bed_id} [delete]
func (m *Module) handleRemoveBed(w http.ResponseWriter, r *http.Request) {
	caller, ok := m.authorize(w, r, authz.RemoveBed)
	if !ok {
		return
	}
	bedID := r.PathValue("bed_id")
	bed, err := m.registry.Get(bedID)
	if err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	if err := m.registry.Remove(r.Context(), bedID); err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	m.record(r, activity.BedRemoved(caller.UserID, bedID))
	m.publish(r.Context(), TopicBedRemoved, bed)
	w.WriteHeader(http.StatusNoContent)
}

// handleReassignPatient changes the patient bound to a bed.
//
//	@Summary		Reassign patient
//	@Tags			monitoring
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			bed_id	path		string					true	"Bed ID"
//	@Param			request	body		ReassignPatientRequest	true	"New patient"
//	@Success		200		{object}	BedSummary
//	@Failure		400		{object}	models.APIProblem
//	@Failure		404		{object}	models.APIProblem
//	@Router			/monitoring/{bed_id}/patient [put]
func (m *Module) handleReassignPatient(w http.ResponseWriter, r *http.Request) {
	caller, ok := m.authorize(w, r, authz.ReassignPatient)
	if !ok {
		return
	}
	var req ReassignPatientRequest
	if err := server.DecodeJSON(w, r, &req); err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	bed, err := m.registry.ReassignPatient(r.PathValue("bed_id"), req.PatientID, req.PatientName)
	if err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	m.record(r, activity.BedPatientReassigned(caller.UserID, bed.BedID, bed.PatientID, bed.PatientName))
	m.publish(r.Context(), TopicBedUpdated, bed)
	server.WriteJSON(w, http.StatusOK, summarize(&bed))
}

// handleSetStatus activates or deactivates a bed. Inactive beds keep their
// cache but are skipped by the refresh loop.
//
//	@Summary		Set bed status
//	@Tags			monitoring
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			bed_id	path		string				true	"Bed ID"
//	@Param			request	body		SetStatusRequest	true	"Status"
//	@Success		200		{object}	BedSummary
//	@Failure		400		{object}	models.APIProblem
//	@Failure		404		{object}	models.APIProblem
//	@Router			/monitoring/{bed_id}/status [put]
func (m *Module) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := m.authorize(w, r, authz.SetBedActive)
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := server.DecodeJSON(w, r, &req); err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	bed, err := m.registry.SetActive(r.PathValue("bed_id"), *req.IsActive)
	if err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	m.record(r, activity.BedStatusChange(caller.UserID, bed.BedID, bed.IsActive))
	m.publish(r.Context(), TopicBedUpdated, bed)
	server.WriteJSON(w, http.StatusOK, summarize(&bed))
}
