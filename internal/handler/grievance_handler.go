package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/middleware"
	"github.com/rushibamb/dig-village-sub001/internal/models"
	"github.com/rushibamb/dig-village-sub001/pkg/response"
)

type grievanceService interface {
	Submit(ctx context.Context, req dto.CreateGrievanceRequest, actorID string) (*models.Grievance, error)
	List(ctx context.Context, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Grievance, error)
	SetAdminStatus(ctx context.Context, id string, req dto.SetAdminStatusRequest, actorID string) (*models.Grievance, error)
	AssignWorker(ctx context.Context, id string, req dto.AssignWorkerRequest, actorID string) (*models.Grievance, error)
	SetProgressStatus(ctx context.Context, id string, req dto.SetProgressRequest, actorID string) (*models.Grievance, error)
	Resolve(ctx context.Context, id string, req dto.ResolveGrievanceRequest, actorID string) (*models.Grievance, error)
}

// GrievanceHandler exposes grievance intake and administration endpoints.
type GrievanceHandler struct {
	grievances grievanceService
}

// NewGrievanceHandler constructs GrievanceHandler.
func NewGrievanceHandler(grievances grievanceService) *GrievanceHandler {
	return &GrievanceHandler{grievances: grievances}
}

// Submit godoc
// @Summary Submit a grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateGrievanceRequest true "Grievance"
// @Success 201 {object} response.Envelope
// @Router /grievances [post]
func (h *GrievanceHandler) Submit(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CreateGrievanceRequest
	if !bindJSON(c, &req) {
		return
	}
	grievance, err := h.grievances.Submit(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grievance)
}

// Mine godoc
// @Summary List the caller's grievances
// @Tags Grievances
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grievances/mine [get]
func (h *GrievanceHandler) Mine(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	query := dto.GrievanceQuery{SubmittedBy: actor}
	query.Page, query.PageSize = pageParams(c)
	h.list(c, query)
}

// List godoc
// @Summary List grievances
// @Tags Admin Grievances
// @Produce json
// @Security BearerAuth
// @Param adminStatus query string false "Unapproved, Approved or Rejected"
// @Param progressStatus query string false "Pending, In-progress or Resolved"
// @Param priority query string false "Priority"
// @Param category query string false "Category"
// @Param workerId query string false "Assigned worker"
// @Param search query string false "Title or description"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/grievances [get]
func (h *GrievanceHandler) List(c *gin.Context) {
	query := dto.GrievanceQuery{
		AdminStatus:    models.AdminStatus(c.Query("adminStatus")),
		ProgressStatus: models.ProgressStatus(c.Query("progressStatus")),
		Priority:       models.GrievancePriority(c.Query("priority")),
		Category:       c.Query("category"),
		WorkerID:       c.Query("workerId"),
		Search:         c.Query("search"),
	}
	query.Page, query.PageSize = pageParams(c)
	h.list(c, query)
}

func (h *GrievanceHandler) list(c *gin.Context, query dto.GrievanceQuery) {
	grievances, pagination, err := h.grievances.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grievances, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get grievance detail
// @Tags Admin Grievances
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/grievances/{id} [get]
func (h *GrievanceHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	grievance, err := h.grievances.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grievance, nil)
}

// SetAdminStatus godoc
// @Summary Approve or reject a grievance
// @Tags Admin Grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Param payload body dto.SetAdminStatusRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/grievances/{id}/admin-status [patch]
func (h *GrievanceHandler) SetAdminStatus(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.SetAdminStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.respond(c)(h.grievances.SetAdminStatus(c.Request.Context(), id, req, actor))
}

// AssignWorker godoc
// @Summary Assign or unassign a worker
// @Description A null workerId clears the assignment.
// @Tags Admin Grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Param payload body dto.AssignWorkerRequest true "Worker"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/grievances/{id}/assign [patch]
func (h *GrievanceHandler) AssignWorker(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.AssignWorkerRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.respond(c)(h.grievances.AssignWorker(c.Request.Context(), id, req, actor))
}

// SetProgress godoc
// @Summary Change progress status
// @Tags Admin Grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Param payload body dto.SetProgressRequest true "Progress"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/grievances/{id}/progress [patch]
func (h *GrievanceHandler) SetProgress(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.SetProgressRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.respond(c)(h.grievances.SetProgressStatus(c.Request.Context(), id, req, actor))
}

// Resolve godoc
// @Summary Resolve a grievance with photos
// @Tags Admin Grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Param payload body dto.ResolveGrievanceRequest true "Resolution photos"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/grievances/{id}/resolve [post]
func (h *GrievanceHandler) Resolve(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.ResolveGrievanceRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.respond(c)(h.grievances.Resolve(c.Request.Context(), id, req, actor))
}

func (h *GrievanceHandler) respond(c *gin.Context) func(*models.Grievance, error) {
	return func(grievance *models.Grievance, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, grievance, nil)
	}
}
