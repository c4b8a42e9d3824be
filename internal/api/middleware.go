package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shieldfi/testnet-rewards/internal/errors"
	"github.com/shieldfi/testnet-rewards/pkg/logger"
)

func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			var validationErr *errors.ValidationError
			var notFoundErr *errors.NotFoundError
			var apiErr *errors.APIError
			var dbErr *errors.DatabaseError

			switch {
			case stderrors.As(err, &validationErr):
				c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			case stderrors.As(err, &notFoundErr):
				c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
			case stderrors.As(err, &apiErr):
				logger.Error("API error: %v", apiErr)
				c.JSON(apiErr.StatusCode, gin.H{"error": apiErr.Message})
			case stderrors.As(err, &dbErr):
				logger.Error("database error: %v", dbErr)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			default:
				logger.Error("unexpected error: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			c.Abort()
		}
	}
}
