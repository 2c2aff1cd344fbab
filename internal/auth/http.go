// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kienvo/identra/internal/platform/middleware"
	requestutil "github.com/kienvo/identra/internal/platform/request"
	"github.com/kienvo/identra/internal/platform/respond"
	"github.com/kienvo/identra/internal/platform/sec"
	"github.com/kienvo/identra/internal/platform/validate"
)

// # HTTP Handler

// Handler exposes the authentication flows under /api/v1/auth.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes assembles the authentication sub-router.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.Register)
	router.Get("/verify-email", handler.VerifyEmail)
	router.Post("/login", handler.Login)
	router.Post("/refresh-token", handler.Refresh)
	router.Post("/forgot-password", handler.ForgotPassword)
	router.Post("/reset-password", handler.ResetPassword)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth)
		protected.Post("/logout", handler.Logout)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	Role         string  `json:"role"`
	ProfileImage *string `json:"profileImage"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// # Endpoints

// Register handles POST /register. It responds 201 with the public profile
// and deliberately no tokens; the account must be verified before login.
func (handler *Handler) Register(writer http.ResponseWriter, request *http.Request) {
	var payload registerRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldName, payload.Name).
		MaxLen(FieldName, payload.Name, MaxNameLength).
		Required(FieldEmail, payload.Email).
		MaxLen(FieldEmail, payload.Email, MaxEmailLength).
		Required(FieldPassword, payload.Password).
		MinLen(FieldPassword, payload.Password, MinPasswordLength)
	if payload.Email != "" {
		validator.Email(FieldEmail, payload.Email)
	}
	// The only role registration may ask for is "user".
	if payload.Role != "" {
		validator.OneOf(FieldRole, payload.Role, string(sec.RoleUser))
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Register(request.Context(), RegisterInput{
		Name:         payload.Name,
		Email:        payload.Email,
		Password:     payload.Password,
		ProfileImage: payload.ProfileImage,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		FieldMessage: "Registration successful. Please check your email to verify your account.",
		FieldUser:    user,
	})
}

// VerifyEmail handles GET /verify-email?token=.
func (handler *Handler) VerifyEmail(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.Query(request, FieldToken)

	if err := handler.service.VerifyEmail(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldMessage: "Email verified successfully. You can now log in.",
	})
}

// Login handles POST /login.
func (handler *Handler) Login(writer http.ResponseWriter, request *http.Request) {
	var payload loginRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldEmail, payload.Email).
		Required(FieldPassword, payload.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.Login(request.Context(), LoginInput{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldMessage:      "Login successful",
		FieldAccessToken:  session.AccessToken,
		FieldRefreshToken: session.RefreshToken,
		FieldUser:         session.User,
	})
}

// Refresh handles POST /refresh-token.
func (handler *Handler) Refresh(writer http.ResponseWriter, request *http.Request) {
	var payload refreshRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefreshToken, payload.RefreshToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.Refresh(request.Context(), payload.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldMessage:      "Token refreshed successfully",
		FieldAccessToken:  session.AccessToken,
		FieldRefreshToken: session.RefreshToken,
	})
}

// Logout handles POST /logout. The body is optional; a missing or malformed
// body just means there is no refresh token to revoke.
func (handler *Handler) Logout(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload logoutRequest
	_ = requestutil.DecodeJSON(request, &payload)

	input := LogoutInput{
		UserID:       claims.UserID,
		AccessToken:  requestutil.BearerToken(request),
		RefreshToken: payload.RefreshToken,
	}
	if claims.ExpiresAt != nil {
		input.AccessExpiresAt = claims.ExpiresAt.Time
	}

	handler.service.Logout(request.Context(), input)

	respond.OK(writer, map[string]any{
		FieldMessage: "Logged out successfully",
	})
}

// ForgotPassword handles POST /forgot-password. The response is identical
// whether or not the email belongs to an account.
func (handler *Handler) ForgotPassword(writer http.ResponseWriter, request *http.Request) {
	var payload forgotPasswordRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, payload.Email)
	if payload.Email != "" {
		validator.Email(FieldEmail, payload.Email)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.RequestPasswordReset(request.Context(), payload.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldMessage: "If an account exists for that email, a password reset link has been sent.",
	})
}

// ResetPassword handles POST /reset-password?token=.
func (handler *Handler) ResetPassword(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.Query(request, FieldToken)
	if token == "" {
		respond.Error(writer, request, validate.RequiredError(FieldToken, "This field is required"))
		return
	}

	var payload resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldPassword, payload.Password).
		MinLen(FieldPassword, payload.Password, MinPasswordLength)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ResetPassword(request.Context(), token, payload.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldMessage: "Password has been reset successfully. You can now log in.",
	})
}
