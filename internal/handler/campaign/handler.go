package campaign

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/service/campaign"
	apperrors "github.com/jwalitptl/outreach-engine/pkg/errors"
	"github.com/jwalitptl/outreach-engine/pkg/httputil"
	"github.com/jwalitptl/outreach-engine/pkg/logger"
)

type Handler struct {
	service *campaign.Service
	logger  *logger.Logger
}

func NewHandler(service *campaign.Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	campaigns := r.Group("/campaigns")
	{
		campaigns.POST("", h.Create)
		campaigns.GET("", h.List)
		campaigns.GET("/:id", h.Get)
		campaigns.POST("/:id/send", h.Send)
		campaigns.POST("/:id/cancel", h.Cancel)
		campaigns.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateCampaignRequest
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
		httputil.RespondWithError(c, apperrors.Validation("invalid campaign ID", err))
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
	filters := &model.CampaignFilters{}
	if status := c.Query("status"); status != "" {
		filters.Status = model.CampaignStatus(status)
	}

	campaigns, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, campaigns)
}

// Send kicks off delivery in the background and returns immediately with the
// sending campaign. Progress is observable through GET and the event stream.
func (h *Handler) Send(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid campaign ID", err))
		return
	}

	found, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if !found.Status.CanTransition(model.CampaignStatusSending) {
		httputil.RespondWithError(c, apperrors.Conflict(
			"campaign is not in a sendable state", nil))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := h.service.Send(ctx, id); err != nil {
			h.logger.Error(err, "campaign send failed", "campaign_id", id.String())
		}
	}()

	httputil.RespondWithSuccess(c, gin.H{"id": id, "status": model.CampaignStatusSending})
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid campaign ID", err))
		return
	}

	updated, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, updated)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid campaign ID", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": id})
}
