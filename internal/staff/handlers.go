package staff

import (
	"net/http"

	"github.com/HerbHall/wardwatch/internal/authz"
	"github.com/HerbHall/wardwatch/internal/server"
	"github.com/HerbHall/wardwatch/pkg/clearance"
	"github.com/HerbHall/wardwatch/pkg/plugin"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "", Handler: m.handleList},
		{Method: "GET", Path: "/doctors", Handler: m.handleDoctors},
		{Method: "PUT", Path: "/{user_id}/clearance", Handler: m.handleChangeClearance},
	}
}

// MemberList is the response body of GET /users.
type MemberList struct {
	Users []Member `json:"users"`
}

// DoctorList is the response body of GET /users/doctors.
type DoctorList struct {
	Doctors []Member `json:"doctors"`
}

// ChangeClearanceRequest is the request body for PUT /users/{user_id}/clearance.
type ChangeClearanceRequest struct {
	ClearanceLevel string `json:"clearance_level" validate:"required,oneof=L1 L2 L3 L4" example:"L2"`
}

// handleList returns every staff member.
//
//	@Summary		List staff
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	MemberList
//	@Failure		401	{object}	models.APIProblem
//	@Failure		403	{object}	models.APIProblem
//	@Router			/users [get]
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	members, err := m.service.List(r.Context(), authz.CallerFromContext(r.Context()))
	if err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, MemberList{Users: members})
}

// handleDoctors returns active staff at L2 or above.
//
//	@Summary		List doctors
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	DoctorList
//	@Failure		401	{object}	models.APIProblem
//	@Router			/users/doctors [get]
func (m *Module) handleDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := m.service.Doctors(r.Context(), authz.CallerFromContext(r.Context()))
	if err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, DoctorList{Doctors: doctors})
}

// handleChangeClearance sets a member's clearance level.
//
//	@Summary		Change clearance
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			user_id	path		string					true	"User ID"
//	@Param			request	body		ChangeClearanceRequest	true	"New level"
//	@Success		200		{object}	Member
//	@Failure		400		{object}	models.APIProblem
//	@Failure		401		{object}	models.APIProblem
//	@Failure		403		{object}	models.APIProblem
//	@Failure		404		{object}	models.APIProblem
//	@Router			/users/{user_id}/clearance [put]
func (m *Module) handleChangeClearance(w http.ResponseWriter, r *http.Request) {
	caller := authz.CallerFromContext(r.Context())
	if err := authz.Authenticated(caller); err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}

	var req ChangeClearanceRequest
	if err := server.DecodeJSON(w, r, &req); err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	if err := server.Validate(&req); err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}

	member, err := m.service.ChangeClearance(r.Context(), caller, r.PathValue("user_id"),
		clearance.Level(req.ClearanceLevel),
		Origin{IPAddress: server.ClientIP(r), UserAgent: r.UserAgent()},
	)
	if err != nil {
		server.WriteError(w, r, m.logger, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, member)
}
