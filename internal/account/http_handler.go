package account

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"userdir/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type createReq struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Email    string  `json:"email" validate:"required,email,max=100"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Role     *string `json:"role" validate:"omitempty,role"`
}

type updateReq struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=100"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
	Role     *string `json:"role" validate:"omitempty,role"`
	Banned   *bool   `json:"banned"`
}

type banReq struct {
	Ban *bool `json:"ban" validate:"required"`
}

// WriteError maps engine errors onto the JSON error envelope. Unknown
// errors become a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", []httpx.ErrorDetail{
			{Field: verr.Field, Message: verr.Message},
		})
	case errors.Is(err, ErrConflict):
		httpx.JSONError(w, r, http.StatusConflict, "ALREADY_EXISTS", "Username or email already exists", nil)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
	default:
		httpx.InternalError(w, r, op, err)
	}
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("id", "must be a positive integer")
	}
	return id, nil
}

// writeAffected answers a mutation; zero affected rows is a 404.
func writeAffected(w http.ResponseWriter, r *http.Request, affected int64) {
	if affected == 0 {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		return
	}
	httpx.JSONSuccess(w, r, map[string]any{"affected": affected}, nil)
}

func parseListQuery(r *http.Request) (Filter, *Sort, error) {
	query := r.URL.Query()

	f := Filter{
		Username: strings.TrimSpace(query.Get("username")),
		Email:    strings.TrimSpace(query.Get("email")),
	}

	if v := strings.TrimSpace(query.Get("role")); v != "" {
		role := Role(v)
		if !role.Valid() {
			return Filter{}, nil, invalid("role", "must be one of admin, user")
		}
		f.Role = &role
	}

	if v := strings.TrimSpace(query.Get("banned")); v != "" {
		banned, err := strconv.ParseBool(v)
		if err != nil {
			return Filter{}, nil, invalid("banned", "must be true or false")
		}
		f.Banned = &banned
	}

	var sort *Sort
	if field := strings.TrimSpace(query.Get("sortBy")); field != "" {
		sort = &Sort{Field: field, Direction: strings.TrimSpace(query.Get("sortDir"))}
	}

	return f, sort, nil
}

// List handles GET /api/users
// @Summary List users
// @Description Filter by role, username, email and banned state; sort by username, email or created_at
// @Tags users
// @Produce json
// @Security Bearer
// @Param role query string false "admin or user"
// @Param username query string false "case-insensitive substring"
// @Param email query string false "case-insensitive substring"
// @Param banned query bool false "banned state"
// @Param sortBy query string false "username, email or created_at"
// @Param sortDir query string false "asc or desc"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Router /api/users [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	f, sort, err := parseListQuery(r)
	if err != nil {
		WriteError(w, r, "list users", err)
		return
	}

	accounts, err := h.service.List(r.Context(), f, sort)
	if err != nil {
		WriteError(w, r, "list users", err)
		return
	}

	httpx.JSONSuccess(w, r, accounts, map[string]any{"total": len(accounts)})
}

// Create handles POST /api/users
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body createReq true "New user"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /api/users [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if validationErrors := httpx.ValidateStruct(req); len(validationErrors) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", validationErrors)
		return
	}

	n := NewAccount{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.Role != nil {
		n.Role = Role(*req.Role)
	}

	id, err := h.service.Create(r.Context(), n)
	if err != nil {
		WriteError(w, r, "create user", err)
		return
	}

	httpx.JSONCreated(w, r, map[string]any{"id": id})
}

// Update handles PUT /api/users/{id}
// @Summary Update user
// @Description Replace only the supplied fields; unknown fields are ignored
// @Tags users
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "User ID"
// @Param request body updateReq true "Fields to change"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /api/users/{id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteError(w, r, "update user", err)
		return
	}

	var req updateReq
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}

	if validationErrors := httpx.ValidateStruct(req); len(validationErrors) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", validationErrors)
		return
	}

	c := Changes{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Banned:   req.Banned,
	}
	if req.Role != nil {
		role := Role(*req.Role)
		c.Role = &role
	}

	affected, err := h.service.Update(r.Context(), id, c)
	if err != nil {
		WriteError(w, r, "update user", err)
		return
	}
	writeAffected(w, r, affected)
}

// SetBan handles PATCH /api/users/{id}/ban
// @Summary Ban or unban user
// @Tags users
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "User ID"
// @Param request body banReq true "Target ban state"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/users/{id}/ban [patch]
func (h *HTTPHandler) SetBan(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteError(w, r, "set ban", err)
		return
	}

	var req banReq
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Ban status must be boolean", nil)
		return
	}
	if validationErrors := httpx.ValidateStruct(req); len(validationErrors) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Ban status must be boolean", validationErrors)
		return
	}

	affected, err := h.service.SetBanned(r.Context(), id, *req.Ban)
	if err != nil {
		WriteError(w, r, "set ban", err)
		return
	}
	writeAffected(w, r, affected)
}

// Delete handles DELETE /api/users/{id}
// @Summary Delete user
// @Tags users
// @Produce json
// @Security Bearer
// @Param id path int true "User ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/users/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteError(w, r, "delete user", err)
		return
	}

	affected, err := h.service.Delete(r.Context(), id)
	if err != nil {
		WriteError(w, r, "delete user", err)
		return
	}
	writeAffected(w, r, affected)
}

// Register mounts the directory routes on mux behind guard.
func (h *HTTPHandler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mux.Handle("GET /api/users", guard(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/users", guard(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /api/users/{id}", guard(http.HandlerFunc(h.Update)))
	mux.Handle("PATCH /api/users/{id}/ban", guard(http.HandlerFunc(h.SetBan)))
	mux.Handle("DELETE /api/users/{id}", guard(http.HandlerFunc(h.Delete)))
}
