package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/pkg/errors"
	"github.com/charlesng35/authcore/pkg/response"
)

// AuthHandler exposes registration, login, refresh, activation and logout.
type AuthHandler struct {
	auth *iauth.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *iauth.AuthService) (*AuthHandler, error) {
	if svc == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	return &AuthHandler{auth: svc}, nil
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=8,passwordbytes"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,notblank,opaquetoken"`
}

type resendActivationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Register(requestContext(c), iauth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, "Registration successful. Check your email to activate your account.", result.User)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Login(requestContext(c), req.Email, req.Password, sessionMetadata(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.auth.Refresh(requestContext(c), strings.TrimSpace(req.RefreshToken), sessionMetadata(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, pair)
}

// GET /api/auth/activate?token= and GET /api/auth/activate/:token
func (h *AuthHandler) Activate(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}
	if token == "" {
		response.Error(c, errors.NewBadRequest("token is required"))
		return
	}

	user, err := h.auth.Activate(requestContext(c), token)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Account activated", user)
}

// POST /api/auth/activation/resend
func (h *AuthHandler) ResendActivation(c *gin.Context) {
	var req resendActivationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResendActivation(requestContext(c), req.Email); err != nil {
		respondError(c, err)
		return
	}

	// Same answer whether or not the address is known.
	response.SuccessWithMessage(c, http.StatusAccepted, "If the account exists and is not yet active, a new activation email has been sent.", nil)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.auth.CurrentUser(requestContext(c), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.auth.Logout(requestContext(c), userID); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}
