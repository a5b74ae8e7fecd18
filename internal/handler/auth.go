package handler

import (
	"net/http"

	"subhlabh/internal/dto"
	"subhlabh/internal/middleware"
	"subhlabh/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

type AuthHandler struct {
	svc      service.AuthService
	sessions sessions.Store
}

// NewAuthHandler builds the login handlers. Tokens are also kept in a session
// cookie so browser form posts authenticate without an Authorization header.
func NewAuthHandler(svc service.AuthService, store sessions.Store) *AuthHandler {
	return &AuthHandler{svc: svc, sessions: store}
}

// Login godoc
// @Summary Shop owner login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} apierror.APIError
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	saveSessionToken(c, h.sessions, resp.AccessToken, resp.ExpiresIn)
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	saveSessionToken(c, h.sessions, resp.AccessToken, resp.ExpiresIn)
	c.JSON(http.StatusOK, resp)
}

// Logout drops the session cookie. Bearer tokens stay valid until they expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	saveSessionToken(c, h.sessions, "", -1)
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: "Logged out"})
}

// ── Account Handler ──────────────────────────────────────────────────────────

type AccountHandler struct{ svc service.AccountService }

func NewAccountHandler(svc service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) Get(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AccountHandler) Update(c *gin.Context) {
	var req dto.UpdateAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), middleware.OwnerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RequestDeletion godoc
// @Summary Schedule account deletion
// @Description The account and all its data are purged once the grace period ends; until then it can be cancelled.
// @Tags account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AccountResponse
// @Router /account/deletion [post]
func (h *AccountHandler) RequestDeletion(c *gin.Context) {
	resp, err := h.svc.RequestDeletion(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AccountHandler) CancelDeletion(c *gin.Context) {
	resp, err := h.svc.CancelDeletion(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
