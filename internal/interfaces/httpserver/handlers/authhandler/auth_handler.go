// Package authhandler exposes the sign-in endpoints: Google ID-token
// exchange plus the local credential flows.
package authhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DphenomenalALU/tresor-backend/internal/domain/user"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/googleauth"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/logger"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/metrics"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/responses"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/apperrors"
)

type AuthHandler struct {
	users    *user.Service
	verifier googleauth.Verifier
}

func NewAuthHandler(users *user.Service, verifier googleauth.Verifier) *AuthHandler {
	return &AuthHandler{users: users, verifier: verifier}
}

type googleRequest struct {
	Credential string `json:"credential"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User user.User `json:"user"`
}

// Google exchanges a Google ID token for the signed-in user.
func (h *AuthHandler) Google(c *gin.Context) {
	var req googleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Credential == "" {
		metrics.RecordAuth("google", "failure")
		c.JSON(http.StatusUnauthorized, responses.ErrorResponse{Error: "Authentication failed"})
		return
	}

	identity, err := h.verifier.Verify(c.Request.Context(), req.Credential)
	if err != nil {
		lg := logger.GetLogger()
		lg.Warn().Err(err).Msg("google token verification failed")
		metrics.RecordAuth("google", "failure")
		c.JSON(http.StatusUnauthorized, responses.ErrorResponse{Error: "Authentication failed"})
		return
	}

	u, err := h.users.EnsureGoogleUser(c.Request.Context(), *identity)
	if err != nil {
		metrics.RecordAuth("google", "failure")
		responses.HandleError(c, err)
		return
	}

	metrics.RecordAuth("google", "success")
	c.JSON(http.StatusOK, userResponse{User: u.Public()})
}

// Register creates a local-credential user.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleError(c, apperrors.New(apperrors.TypeValidation, "invalid request body"))
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		responses.HandleError(c, apperrors.New(apperrors.TypeValidation, "name, email and password are required"))
		return
	}

	u, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		metrics.RecordAuth("local", "failure")
		responses.HandleError(c, err)
		return
	}

	metrics.RecordAuth("local", "success")
	c.JSON(http.StatusCreated, userResponse{User: u.Public()})
}

// Login verifies local credentials.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleError(c, apperrors.New(apperrors.TypeValidation, "invalid request body"))
		return
	}

	u, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		metrics.RecordAuth("local", "failure")
		responses.HandleError(c, err)
		return
	}

	metrics.RecordAuth("local", "success")
	c.JSON(http.StatusOK, userResponse{User: u.Public()})
}
