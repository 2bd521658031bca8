// Package responses holds the shared HTTP response shapes.
package responses

import (
	"github.com/gin-gonic/gin"

	"github.com/DphenomenalALU/tresor-backend/internal/utils/apperrors"
)

// ErrorResponse is the inline error body the browser client expects.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleError maps an error to its HTTP status and writes the body.
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperrors.HTTPStatus(err), ErrorResponse{Error: err.Error()})
}
