package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/models"
	"github.com/rushibamb/dig-village-sub001/pkg/response"
)

type workerService interface {
	List(ctx context.Context, query dto.WorkerQuery) ([]models.Worker, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Worker, error)
	Create(ctx context.Context, req dto.CreateWorkerRequest, actorID string) (*models.Worker, error)
	Update(ctx context.Context, id string, req dto.UpdateWorkerRequest, actorID string) (*models.Worker, error)
	Deactivate(ctx context.Context, id, actorID string) error
}

// WorkerHandler exposes field worker administration.
type WorkerHandler struct {
	workers workerService
}

// NewWorkerHandler constructs WorkerHandler.
func NewWorkerHandler(workers workerService) *WorkerHandler {
	return &WorkerHandler{workers: workers}
}

// List godoc
// @Summary List workers
// @Tags Admin Workers
// @Produce json
// @Security BearerAuth
// @Param status query string false "active or inactive"
// @Param department query string false "Department"
// @Param search query string false "Name"
// @Success 200 {object} response.Envelope
// @Router /admin/workers [get]
func (h *WorkerHandler) List(c *gin.Context) {
	query := dto.WorkerQuery{
		Status:     models.WorkerStatus(c.Query("status")),
		Department: c.Query("department"),
		Search:     c.Query("search"),
	}
	query.Page, query.PageSize = pageParams(c)
	workers, pagination, err := h.workers.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, workers, pagination)
}

// Get godoc
// @Summary Get worker
// @Tags Admin Workers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Worker ID"
// @Success 200 {object} response.Envelope
// @Router /admin/workers/{id} [get]
func (h *WorkerHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	worker, err := h.workers.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, worker, nil)
}

// Create godoc
// @Summary Register worker
// @Tags Admin Workers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateWorkerRequest true "Worker"
// @Success 201 {object} response.Envelope
// @Router /admin/workers [post]
func (h *WorkerHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CreateWorkerRequest
	if !bindJSON(c, &req) {
		return
	}
	worker, err := h.workers.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, worker)
}

// Update godoc
// @Summary Update worker
// @Tags Admin Workers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Worker ID"
// @Param payload body dto.UpdateWorkerRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /admin/workers/{id} [put]
func (h *WorkerHandler) Update(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.UpdateWorkerRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	worker, err := h.workers.Update(c.Request.Context(), id, req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, worker, nil)
}

// Delete godoc
// @Summary Deactivate worker
// @Tags Admin Workers
// @Security BearerAuth
// @Param id path string true "Worker ID"
// @Success 204
// @Router /admin/workers/{id} [delete]
func (h *WorkerHandler) Delete(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.workers.Deactivate(c.Request.Context(), id, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
