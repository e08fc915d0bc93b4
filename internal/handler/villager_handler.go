package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/middleware"
	"github.com/rushibamb/dig-village-sub001/internal/models"
	"github.com/rushibamb/dig-village-sub001/pkg/response"
)

// EditTokenHeader carries the single-use token returned by OTP verification.
const EditTokenHeader = "X-Edit-Token"

type villagerService interface {
	Submit(ctx context.Context, req dto.VillagerRequest) (*models.Villager, error)
	AdminCreate(ctx context.Context, req dto.VillagerRequest, actorID string) (*models.Villager, error)
	List(ctx context.Context, query dto.VillagerQuery) ([]models.Villager, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Villager, error)
	Review(ctx context.Context, id string, req dto.ReviewVillagerRequest, reviewerID string) (*models.Villager, error)
	AdminUpdate(ctx context.Context, id string, req dto.VillagerRequest, actorID string) (*models.Villager, error)
	RequestEditOTP(ctx context.Context, req dto.RequestOTPRequest) (*dto.OTPIssued, error)
	VerifyEditOTP(ctx context.Context, req dto.VerifyOTPRequest) (*dto.EditSession, error)
	SubmitEdit(ctx context.Context, id, editToken string, req dto.VillagerRequest) (*models.Villager, error)
}

// VillagerHandler exposes villager registration, review and edit endpoints.
type VillagerHandler struct {
	villagers villagerService
}

// NewVillagerHandler constructs VillagerHandler.
func NewVillagerHandler(villagers villagerService) *VillagerHandler {
	return &VillagerHandler{villagers: villagers}
}

// Submit godoc
// @Summary Submit a villager registration
// @Tags Villagers
// @Accept json
// @Produce json
// @Param payload body dto.VillagerRequest true "Villager record"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /villagers [post]
func (h *VillagerHandler) Submit(c *gin.Context) {
	var req dto.VillagerRequest
	if !bindJSON(c, &req) {
		return
	}
	villager, err := h.villagers.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, villager)
}

// RequestOTP godoc
// @Summary Send an edit verification code
// @Tags Villagers
// @Accept json
// @Produce json
// @Param payload body dto.RequestOTPRequest true "Registered mobile number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /villagers/edit/otp [post]
func (h *VillagerHandler) RequestOTP(c *gin.Context) {
	var req dto.RequestOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	issued, err := h.villagers.RequestEditOTP(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issued, nil)
}

// VerifyOTP godoc
// @Summary Verify an edit code
// @Description Returns the current record and a single-use edit token.
// @Tags Villagers
// @Accept json
// @Produce json
// @Param payload body dto.VerifyOTPRequest true "Mobile number and code"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /villagers/edit/verify [post]
func (h *VillagerHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.villagers.VerifyEditOTP(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// SubmitEdit godoc
// @Summary Submit a villager edit
// @Tags Villagers
// @Accept json
// @Produce json
// @Param id path string true "Villager ID"
// @Param X-Edit-Token header string true "Edit token from verification"
// @Param payload body dto.VillagerRequest true "Full villager record"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /villagers/edit/{id} [put]
func (h *VillagerHandler) SubmitEdit(c *gin.Context) {
	var req dto.VillagerRequest
	if !bindJSON(c, &req) {
		return
	}
	token := strings.TrimSpace(c.GetHeader(EditTokenHeader))
	id, ok := pathID(c)
	if !ok {
		return
	}
	villager, err := h.villagers.SubmitEdit(c.Request.Context(), id, token, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, villager, nil)
}

// List godoc
// @Summary List villagers
// @Tags Admin Villagers
// @Produce json
// @Security BearerAuth
// @Param status query string false "Comma separated statuses"
// @Param requestType query string false "New Registration or Edit Request"
// @Param search query string false "Name, mobile or ID number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/villagers [get]
func (h *VillagerHandler) List(c *gin.Context) {
	query := dto.VillagerQuery{
		RequestType: models.RequestType(strings.TrimSpace(c.Query("requestType"))),
		Search:      c.Query("search"),
	}
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			query.Status = append(query.Status, models.VillagerStatus(s))
		}
	}
	query.Page, query.PageSize = pageParams(c)

	villagers, pagination, err := h.villagers.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, villagers, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get villager detail
// @Tags Admin Villagers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Villager ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/villagers/{id} [get]
func (h *VillagerHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	villager, err := h.villagers.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, villager, nil)
}

// AdminCreate godoc
// @Summary Create an approved villager
// @Tags Admin Villagers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.VillagerRequest true "Villager record"
// @Success 201 {object} response.Envelope
// @Router /admin/villagers [post]
func (h *VillagerHandler) AdminCreate(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.VillagerRequest
	if !bindJSON(c, &req) {
		return
	}
	villager, err := h.villagers.AdminCreate(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, villager)
}

// AdminUpdate godoc
// @Summary Override villager fields
// @Tags Admin Villagers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Villager ID"
// @Param payload body dto.VillagerRequest true "Villager record"
// @Success 200 {object} response.Envelope
// @Router /admin/villagers/{id} [put]
func (h *VillagerHandler) AdminUpdate(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.VillagerRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	villager, err := h.villagers.AdminUpdate(c.Request.Context(), id, req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, villager, nil)
}

// Review godoc
// @Summary Approve or reject a pending villager
// @Tags Admin Villagers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Villager ID"
// @Param payload body dto.ReviewVillagerRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/villagers/{id}/review [post]
func (h *VillagerHandler) Review(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.ReviewVillagerRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	villager, err := h.villagers.Review(c.Request.Context(), id, req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, villager, nil)
}
