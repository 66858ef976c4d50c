package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"github.com/harentsoaR/vetclinic-api/internal/services"
)

func (h *Handler) CreatePatient(c *gin.Context) {
	var req services.PatientInput
	if !bindJSON(c, &req) {
		return
	}
	patient, err := h.svc.Patients.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patient)
}

// ListPatients returns active patients, filtered by ?owner=, ?species= and ?q=.
func (h *Handler) ListPatients(c *gin.Context) {
	h.listPatients(c, true)
}

func (h *Handler) ListInactivePatients(c *gin.Context) {
	h.listPatients(c, false)
}

func (h *Handler) listPatients(c *gin.Context, active bool) {
	owner, err := queryID(c, "owner")
	if err != nil {
		respondError(c, err)
		return
	}
	filter := repository.PatientFilter{
		OwnerID: owner,
		Species: models.Species(c.Query("species")),
		Active:  repository.Bool(active),
		Query:   strings.TrimSpace(c.Query("q")),
	}
	patients, err := h.svc.Patients.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patients)
}

func (h *Handler) GetPatientByRecord(c *gin.Context) {
	patient, err := h.svc.Patients.GetByRecordNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (h *Handler) ListClientPatients(c *gin.Context) {
	id, ok := idParam(c, "clientId")
	if !ok {
		return
	}
	patients, err := h.svc.Patients.ListByOwner(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patients)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	patient, err := h.svc.Patients.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdatePatientInput
	if !bindJSON(c, &req) {
		return
	}
	patient, err := h.svc.Patients.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (h *Handler) DeactivatePatient(c *gin.Context) {
	h.setPatientActive(c, false)
}

func (h *Handler) ReactivatePatient(c *gin.Context) {
	h.setPatientActive(c, true)
}

func (h *Handler) setPatientActive(c *gin.Context, active bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	patient, err := h.svc.Patients.SetActive(c.Request.Context(), id, active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

// MyPatients lists the calling client's active patients.
func (h *Handler) MyPatients(c *gin.Context) {
	client, ok := currentClient(c)
	if !ok {
		return
	}
	patients, err := h.svc.Patients.ListByOwner(c.Request.Context(), client.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patients)
}
