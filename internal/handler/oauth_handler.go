package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/guild-rejoin/internal/discord"
	"github.com/prperemyshlev/guild-rejoin/internal/domain"
	"github.com/prperemyshlev/guild-rejoin/internal/dto"
	"github.com/prperemyshlev/guild-rejoin/internal/service"
	"github.com/prperemyshlev/guild-rejoin/internal/utils"
	"go.uber.org/zap"
)

// OAuthHandler handles the Discord authorization flow
type OAuthHandler struct {
	oauthService service.OAuthService
	logger       *zap.Logger
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(oauthService service.OAuthService, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
		logger:       logger,
	}
}

// Authorize redirects to the Discord consent page
// @Summary Start Discord authorization
// @Tags auth
// @Success 302
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/discord [get]
func (h *OAuthHandler) Authorize(c *gin.Context) {
	url, err := h.oauthService.AuthorizeURL(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build authorize url", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Failed to start authorization",
		})
		return
	}

	c.Redirect(http.StatusFound, url)
}

// Callback completes the Discord authorization
// @Summary Discord authorization callback
// @Tags auth
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "Signed state"
// @Success 200 {object} dto.AuthorizedResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/callback [get]
func (h *OAuthHandler) Callback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Authorization denied",
			Message: reason,
		})
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "code and state are required",
		})
		return
	}

	user, err := h.oauthService.HandleCallback(c.Request.Context(), code, state)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidState), errors.Is(err, discord.ErrCodeRejected):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Bad request",
				Message: err.Error(),
			})
		case errors.Is(err, service.ErrNoRefreshToken):
			h.logger.Warn("Token response without refresh token", zap.Error(err))
			c.JSON(http.StatusBadGateway, dto.ErrorResponse{
				Error:   "Bad gateway",
				Message: "Discord did not grant offline access, please authorize again",
			})
		case errors.Is(err, domain.ErrProviderTimeout), errors.Is(err, domain.ErrProviderUnavailable):
			c.JSON(http.StatusBadGateway, dto.ErrorResponse{
				Error:   "Bad gateway",
				Message: "Discord is not reachable, please try again",
			})
		default:
			h.logger.Error("Authorization callback failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "Internal server error",
				Message: "Failed to complete authorization",
			})
		}
		return
	}

	c.JSON(http.StatusOK, dto.AuthorizedResponse{
		ID:       user.ID,
		Username: user.Username,
		Message:  "Authorization complete. You can close this window.",
	})
}
