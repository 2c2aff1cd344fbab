// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kienvo/identra/internal/auth"
	"github.com/kienvo/identra/internal/platform/middleware"
	requestutil "github.com/kienvo/identra/internal/platform/request"
	"github.com/kienvo/identra/internal/platform/respond"
	"github.com/kienvo/identra/internal/platform/sec"
	"github.com/kienvo/identra/internal/platform/validate"
	"github.com/kienvo/identra/pkg/pagination"
)

// # HTTP Handler

// Handler exposes the user directory under /api/v1/users. Every route
// requires authentication; deletion additionally requires the admin role.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/profile", handler.GetProfile)
	router.Put("/profile", handler.UpdateProfile)
	router.Get("/", handler.List)
	router.Get("/{id}", handler.GetByID)

	router.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireRole(sec.RoleAdmin))
		admin.Delete("/{id}", handler.Delete)
	})

	return router
}

type updateProfileRequest struct {
	Name         *string `json:"name"`
	ProfileImage *string `json:"profileImage"`
}

// # Endpoints

// GetProfile handles GET /profile: the caller's own profile, cache-backed.
func (handler *Handler) GetProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// UpdateProfile handles PUT /profile.
func (handler *Handler) UpdateProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload updateProfileRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if payload.Name != nil {
		validator.
			Required(auth.FieldName, *payload.Name).
			MaxLen(auth.FieldName, *payload.Name, auth.MaxNameLength)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.UpdateProfile(request.Context(), userID, UpdateInput{
		Name:         payload.Name,
		ProfileImage: payload.ProfileImage,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// List handles GET /: the paginated, searchable directory.
func (handler *Handler) List(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	search := requestutil.Query(request, "search")

	page, err := handler.service.List(request.Context(), params, search)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, page.Users, page.Meta)
}

// GetByID handles GET /{id}.
func (handler *Handler) GetByID(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	validator.UUID("id", id)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.GetProfile(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// Delete handles DELETE /{id} (admin only).
func (handler *Handler) Delete(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	validator.UUID("id", id)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), claims.UserID, id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		auth.FieldMessage: "User deleted successfully",
	})
}
