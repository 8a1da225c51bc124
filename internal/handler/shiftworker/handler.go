package shiftworker

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/service/shiftworker"
	apperrors "github.com/jwalitptl/outreach-engine/pkg/errors"
	"github.com/jwalitptl/outreach-engine/pkg/httputil"
)

type Handler struct {
	service *shiftworker.Service
}

func NewHandler(service *shiftworker.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	workers := r.Group("/shift-workers")
	{
		workers.POST("", h.Create)
		workers.GET("", h.List)
		workers.GET("/:id", h.Get)
		workers.POST("/:id/checkpoint", h.ReissueCheckpoint)
		workers.POST("/:id/checkpoint/response", h.RecordCheckpointResponse)
		workers.POST("/:id/confirm-return", h.ConfirmReturn)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateShiftWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	created, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid worker ID", err))
		return
	}

	found, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, found)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.ShiftWorkerFilters{}
	if site := c.Query("site"); site != "" {
		filters.Sites = []string{site}
	}
	if status := c.Query("checkpoint_status"); status != "" {
		filters.CheckpointStatus = model.CheckpointStatus(status)
	}

	workers, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, workers)
}

func (h *Handler) ReissueCheckpoint(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid worker ID", err))
		return
	}

	var req model.ReissueCheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	updated, err := h.service.ReissueCheckpoint(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, updated)
}

func (h *Handler) RecordCheckpointResponse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid worker ID", err))
		return
	}

	var req model.CheckpointResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	updated, err := h.service.RecordCheckpointResponse(c.Request.Context(), id, req.Response)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, updated)
}

func (h *Handler) ConfirmReturn(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid worker ID", err))
		return
	}

	updated, err := h.service.ConfirmReturn(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, updated)
}
