// Package handlers contiene los controllers HTTP. Son deliberadamente
// finos: decodifican, delegan en el service y serializan.
package handlers

import (
	"net/http"

	"github.com/dropDatabas3/cartelera/internal/auth"
	"github.com/dropDatabas3/cartelera/internal/http/apierrors"
	"github.com/dropDatabas3/cartelera/internal/http/httpx"
	"github.com/dropDatabas3/cartelera/internal/http/middlewares"
)

type AuthController struct {
	Auth auth.Service
}

func NewAuthController(svc auth.Service) *AuthController {
	return &AuthController{Auth: svc}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login maneja POST /v1/auth/login.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		apierrors.WriteError(w, apierrors.ErrBadRequest.WithDetail("email y password son requeridos"))
		return
	}

	sess, err := c.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sess)
}

// Refresh maneja POST /v1/auth/refresh.
func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		apierrors.WriteError(w, apierrors.ErrBadRequest.WithDetail("refreshToken es requerido"))
		return
	}

	sess, err := c.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sess)
}

// Logout maneja POST /v1/auth/logout. Siempre 200: revocar un token ya
// revocado o inválido también es éxito.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	if err := c.Auth.Logout(r.Context(), req.RefreshToken); err != nil {
		apierrors.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "sesión cerrada"})
}

// Register maneja POST /v1/auth/register.
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !httpx.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		apierrors.WriteError(w, apierrors.ErrBadRequest.WithDetail("email y password son requeridos"))
		return
	}

	// el registro deja al admin logueado: misma forma que login
	sess, err := c.Auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		apierrors.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sess)
}

// Me maneja GET /v1/auth/me (detrás de RequireAuth).
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := middlewares.GetIdentity(r.Context())
	if !ok {
		apierrors.WriteError(w, apierrors.ErrUnauthorized)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"admin": ident})
}
