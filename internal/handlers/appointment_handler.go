package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"github.com/harentsoaR/vetclinic-api/internal/services"
)

const dateLayout = "2006-01-02"

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

type CompleteAppointmentRequest struct {
	ConsultationID string `json:"consultationId" binding:"omitempty,objectid"`
}

type AppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required"`
}

// --- CREATE APPOINTMENT ---
func (h *Handler) CreateAppointment(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	var req services.AppointmentInput
	if !bindJSON(c, &req) {
		return
	}
	apt, err := h.svc.Appointments.Create(c.Request.Context(), staff, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, apt)
}

// --- GET APPOINTMENTS (with Filtering & Sorting) ---
// Filters: ?from=2024-07-01&to=2024-07-31 (whole days), ?status=Pending,Confirmed,
// ?veterinarian=, ?client=, ?patient=. Results are in chronological order.
func (h *Handler) GetAppointments(c *gin.Context) {
	filter, err := appointmentFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	appointments, err := h.svc.Appointments.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

func appointmentFilter(c *gin.Context) (repository.AppointmentFilter, error) {
	var filter repository.AppointmentFilter

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, apperr.Invalid("invalid from date, use YYYY-MM-DD")
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, apperr.Invalid("invalid to date, use YYYY-MM-DD")
		}
		// Include the entire end day.
		_, end := services.DayBounds(to)
		filter.To = &end
	}

	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := models.AppointmentStatus(strings.TrimSpace(s))
			if !status.Valid() {
				return filter, apperr.Invalidf("invalid status %q", s)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	var err error
	if filter.VeterinarianID, err = queryID(c, "veterinarian"); err != nil {
		return filter, err
	}
	if filter.ClientID, err = queryID(c, "client"); err != nil {
		return filter, err
	}
	if filter.PatientID, err = queryID(c, "patient"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *Handler) GetAppointmentsByDate(c *gin.Context) {
	date, err := time.Parse(dateLayout, c.Param("date"))
	if err != nil {
		respondError(c, apperr.Invalid("invalid date, use YYYY-MM-DD"))
		return
	}
	appointments, err := h.svc.Appointments.ListByDate(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

// GetVeterinarianAppointments lists a veterinarian's pending and confirmed appointments.
func (h *Handler) GetVeterinarianAppointments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	appointments, err := h.svc.Appointments.ListUpcomingForVeterinarian(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

func (h *Handler) GetClientAppointments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	appointments, err := h.svc.Appointments.ListForClient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

func (h *Handler) GetPatientAppointments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	appointments, err := h.svc.Appointments.ListForPatient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	apt, err := h.svc.Appointments.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apt)
}

// MyAppointments is the portal view of the calling client's appointments.
func (h *Handler) MyAppointments(c *gin.Context) {
	client, ok := currentClient(c)
	if !ok {
		return
	}
	appointments, err := h.svc.Appointments.ListForClient(c.Request.Context(), client.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

// --- UPDATE APPOINTMENT ---
func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateAppointmentInput
	if !bindJSON(c, &req) {
		return
	}
	apt, err := h.svc.Appointments.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apt)
}

// --- CANCEL APPOINTMENT ---
func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req CancelAppointmentRequest
	// The body is optional.
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	apt, err := h.svc.Appointments.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apt)
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req CompleteAppointmentRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	apt, err := h.svc.Appointments.Complete(c.Request.Context(), id, req.ConsultationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apt)
}

func (h *Handler) ChangeAppointmentStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req AppointmentStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	apt, err := h.svc.Appointments.ChangeStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apt)
}
