package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"github.com/harentsoaR/vetclinic-api/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateConsultation records a consultation. A linked appointment is completed.
func (h *Handler) CreateConsultation(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	var req services.ConsultationInput
	if !bindJSON(c, &req) {
		return
	}
	consultation, err := h.svc.Consultations.Create(c.Request.Context(), staff, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, consultation)
}

func (h *Handler) ListConsultations(c *gin.Context) {
	h.listConsultations(c, repository.ConsultationFilter{})
}

func (h *Handler) ListVeterinarianConsultations(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		h.listConsultations(c, repository.ConsultationFilter{VeterinarianID: &id})
	}
}

func (h *Handler) ListClientConsultations(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		h.listConsultations(c, repository.ConsultationFilter{ClientID: &id})
	}
}

func (h *Handler) ListPatientConsultations(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		h.listConsultations(c, repository.ConsultationFilter{PatientID: &id})
	}
}

func (h *Handler) listConsultations(c *gin.Context, filter repository.ConsultationFilter) {
	consultations, err := h.svc.Consultations.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, consultations)
}

func (h *Handler) ConsultationStatistics(c *gin.Context) {
	stats, err := h.svc.Consultations.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetConsultation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	consultation, err := h.svc.Consultations.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, consultation)
}

func (h *Handler) UpdateConsultation(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateConsultationInput
	if !bindJSON(c, &req) {
		return
	}
	consultation, err := h.svc.Consultations.Update(c.Request.Context(), staff, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, consultation)
}

func (h *Handler) AddMedication(c *gin.Context) {
	var req models.Medication
	h.appendToConsultation(c, &req, func(staff *models.StaffIdentity, id primitive.ObjectID) (*models.Consultation, error) {
		return h.svc.Consultations.AddMedication(c.Request.Context(), staff, id, req)
	})
}

func (h *Handler) AddExam(c *gin.Context) {
	var req models.Exam
	h.appendToConsultation(c, &req, func(staff *models.StaffIdentity, id primitive.ObjectID) (*models.Consultation, error) {
		return h.svc.Consultations.AddExam(c.Request.Context(), staff, id, req)
	})
}

func (h *Handler) AddVaccination(c *gin.Context) {
	var req models.Vaccination
	h.appendToConsultation(c, &req, func(staff *models.StaffIdentity, id primitive.ObjectID) (*models.Consultation, error) {
		return h.svc.Consultations.AddVaccination(c.Request.Context(), staff, id, req)
	})
}

// appendToConsultation binds body, then runs add for the consultation in the path.
func (h *Handler) appendToConsultation(c *gin.Context, body any, add func(*models.StaffIdentity, primitive.ObjectID) (*models.Consultation, error)) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if !bindJSON(c, body) {
		return
	}
	consultation, err := add(staff, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, consultation)
}

// --- PORTAL ---

func (h *Handler) MyConsultations(c *gin.Context) {
	client, ok := currentClient(c)
	if !ok {
		return
	}
	h.listConsultations(c, repository.ConsultationFilter{ClientID: &client.ID})
}

// MyPatientConsultations is the history of one of the caller's patients.
func (h *Handler) MyPatientConsultations(c *gin.Context) {
	client, ok := currentClient(c)
	if !ok {
		return
	}
	patientID, ok := idParam(c, "patientId")
	if !ok {
		return
	}
	consultations, err := h.svc.Consultations.ListForClientPatient(c.Request.Context(), client, patientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, consultations)
}
