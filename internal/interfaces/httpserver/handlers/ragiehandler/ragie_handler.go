// Package ragiehandler proxies document connector provisioning and the
// OAuth callback that follows it.
package ragiehandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/logger"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/metrics"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/responses"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/httpclients/ragie"
)

type RagieHandler struct {
	connector *ragie.Client
}

func NewRagieHandler(connector *ragie.Client) *RagieHandler {
	return &RagieHandler{connector: connector}
}

type initRequest struct {
	UserID string `json:"userId"`
}

// Init provisions a Google Drive connection and returns the upstream
// response body verbatim.
func (h *RagieHandler) Init(c *gin.Context) {
	var req initRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = initRequest{}
	}

	body, err := h.connector.CreateDriveConnection(c.Request.Context(), req.UserID)
	if err != nil {
		lg := logger.GetLogger()
		lg.Error().Err(err).Msg("ragie initialization failed")
		metrics.ConnectorRequestsTotal.WithLabelValues("failure").Inc()
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "Failed to initialize Ragie Connect"})
		return
	}

	metrics.ConnectorRequestsTotal.WithLabelValues("success").Inc()
	c.Data(http.StatusOK, "application/json", body)
}

// Callback lands the user back in the app after the connector's OAuth
// consent screen.
func (h *RagieHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		lg := logger.GetLogger()
		lg.Error().Str("error", errParam).Msg("ragie connection error")
		c.Redirect(http.StatusFound, "/?error=connection_failed")
		return
	}

	if connectionID := c.Query("connection_id"); connectionID != "" {
		lg := logger.GetLogger()
		lg.Info().Str("connection_id", connectionID).Msg("ragie connection successful")
		c.Redirect(http.StatusFound, "/chat.html?connection_success=true")
		return
	}

	c.Redirect(http.StatusFound, "/?error=no_connection_id")
}
