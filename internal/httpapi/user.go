package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ecp-air/airquality-backend/internal/models"
	"github.com/ecp-air/airquality-backend/internal/usersvc"
)

// UserHandler exposes account and session endpoints.
type UserHandler struct {
	svc    *usersvc.Service
	logger *zap.Logger
}

// NewUserHandler creates the handler.
func NewUserHandler(svc *usersvc.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the public account routes.
func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users/register", h.Register).Methods(http.MethodPost)
	router.HandleFunc("/users/login", h.Login).Methods(http.MethodPost)
	router.HandleFunc("/users/refresh", h.Refresh).Methods(http.MethodPost)
	router.HandleFunc("/users/verify-email", h.VerifyEmail).Methods(http.MethodPost)
	router.HandleFunc("/users/resend-verification", h.ResendVerification).Methods(http.MethodPost)
	router.HandleFunc("/users/forgot-password", h.ForgotPassword).Methods(http.MethodPost)
	router.HandleFunc("/users/reset-password", h.ResetPassword).Methods(http.MethodPost)
}

// RegisterProtectedRoutes mounts the routes that require a valid session.
func (h *UserHandler) RegisterProtectedRoutes(router *mux.Router) {
	router.HandleFunc("/users/me", h.Profile).Methods(http.MethodGet)
	router.HandleFunc("/users/me", h.UpdateProfile).Methods(http.MethodPut)
	router.HandleFunc("/users/me/password", h.ChangePassword).Methods(http.MethodPut)
}

// userView is the account shape returned to clients.
type userView struct {
	UserID     uint   `json:"user_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	IsVerified bool   `json:"is_verified"`
	Role       int    `json:"role"`
	RoleText   string `json:"role_text"`
}

func toUserView(u *models.User) userView {
	return userView{
		UserID:     u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Username:   u.Username,
		Email:      u.Email,
		Phone:      u.Phone,
		IsVerified: u.IsVerified,
		Role:       u.Role,
		RoleText:   u.RoleText(),
	}
}

// Register handles POST /users/register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req usersvc.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	user, err := h.svc.Register(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondCreated(w, "account created, check your email to verify", toUserView(user))
}

// Login handles POST /users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	user, pair, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "login successful", map[string]interface{}{
		"user":   toUserView(user),
		"tokens": pair,
	}, nil)
}

// Refresh handles POST /users/refresh.
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "tokens refreshed", pair, nil)
}

// VerifyEmail handles POST /users/verify-email.
func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req.Token); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "email verified", nil, nil)
}

// ResendVerification handles POST /users/resend-verification.
func (h *UserHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	if err := h.svc.ResendVerification(r.Context(), req.Email); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "verification email sent", nil, nil)
}

// ForgotPassword handles POST /users/forgot-password.
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "if the address is registered, a reset email has been sent", nil, nil)
}

// ResetPassword handles POST /users/reset-password.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "password reset", nil, nil)
}

// Profile handles GET /users/me.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	account, err := h.svc.Profile(r.Context(), user)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "profile retrieved", toUserView(account), nil)
}

// UpdateProfile handles PUT /users/me.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	var req usersvc.UpdateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	account, err := h.svc.UpdateProfile(r.Context(), user, req)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "profile updated", toUserView(account), nil)
}

// ChangePassword handles PUT /users/me/password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "password changed", nil, nil)
}
