package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/guild-rejoin/internal/dto"
	"github.com/prperemyshlev/guild-rejoin/internal/service"
	"go.uber.org/zap"
)

// AdminHandler handles rejoin administration requests
type AdminHandler struct {
	reconcileService service.ReconcileService
	logger           *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(reconcileService service.ReconcileService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		reconcileService: reconcileService,
		logger:           logger,
	}
}

// Rejoin handles a bulk rejoin trigger
// @Summary Re-add all authorized users to a guild
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Param guild_id query string true "Guild id"
// @Param notify query bool false "Send a welcome DM to newly joined users"
// @Success 200 {object} dto.SummaryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/rejoin [post]
func (h *AdminHandler) Rejoin(c *gin.Context) {
	var req dto.RejoinRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	summary, err := h.reconcileService.Reconcile(c.Request.Context(), req.GuildID, req.Notify)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			c.JSON(http.StatusConflict, dto.ErrorResponse{
				Error:   "Conflict",
				Message: err.Error(),
			})
			return
		}

		resp := dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		}
		if summary != nil {
			resp.Details = dto.NewSummaryResponse(summary)
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusOK, dto.NewSummaryResponse(summary))
}

// GetRun handles listing the audit rows of a run
// @Summary Get the per-user results of a rejoin run
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Param run_id path string true "Run id"
// @Success 200 {object} dto.RunResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/runs/{run_id} [get]
func (h *AdminHandler) GetRun(c *gin.Context) {
	var req dto.RunRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	attempts, err := h.reconcileService.ListAttempts(c.Request.Context(), req.RunID)
	if err != nil {
		h.logger.Error("Failed to list run attempts", zap.String("run_id", req.RunID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	if len(attempts) == 0 {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not found",
			Message: "Run not found",
		})
		return
	}

	c.JSON(http.StatusOK, dto.NewRunResponse(req.RunID, attempts))
}
