package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prperemyshlev/guild-rejoin/internal/dto"
	"github.com/prperemyshlev/guild-rejoin/internal/utils"
)

// APIKeyHeader carries the admin key
const APIKeyHeader = "X-API-Key"

// AdminKeyMiddleware rejects requests whose X-API-Key does not match the stored bcrypt hash
func AdminKeyMiddleware(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "X-API-Key header is required",
			})
			c.Abort()
			return
		}

		if !utils.CheckAPIKey(key, keyHash) {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid API key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RegisterValidators installs the custom binding tags on gin's validator
func RegisterValidators() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return utils.RegisterValidators(v)
	}
	return nil
}
