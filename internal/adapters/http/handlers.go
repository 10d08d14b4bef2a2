package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sp3dr4/tern/internal/application"
	"github.com/sp3dr4/tern/internal/coalesce"
	"github.com/sp3dr4/tern/internal/domain"
	"github.com/sp3dr4/tern/internal/pkg/logging"
)

type Handlers struct {
	service *application.MappingService
}

func NewHandlers(service *application.MappingService) *Handlers {
	return &Handlers{service: service}
}

// HandleHealth handles the health check endpoint.
//
//	@Summary		Health check endpoint
//	@Description	Check if the service is running
//	@Tags			health
//	@Produce		plain
//	@Success		200	{string}	string	"OK"
//	@Router			/health [get]
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// HandleReady handles the readiness check endpoint.
//
//	@Summary		Readiness check endpoint
//	@Description	Check that the store and the shared cache are reachable
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	object{status=string,timestamp=string}	"Service is ready"
//	@Failure		503	{object}	ErrorResponse							"Service is not ready"
//	@Router			/ready [get]
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.HealthCheck(ctx); err != nil {
		logging.FromContext(ctx).Error("Readiness check failed", "error", err)
		respondWithError(w, r, http.StatusServiceUnavailable, "Service not ready")
		return
	}

	respondWithJSON(w, r, http.StatusOK, map[string]string{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleShorten handles the URL shortening endpoint.
//
//	@Summary		Create or fetch a short URL
//	@Description	Return the short code for a long URL, creating it on first use
//	@Tags			mappings
//	@Accept			json
//	@Produce		json
//	@Param			request	body		application.ShortenRequest	true	"URL to shorten"
//	@Success		200		{object}	application.ShortenResponse	"Existing mapping"
//	@Success		201		{object}	application.ShortenResponse	"Created mapping"
//	@Failure		400		{object}	ValidationErrorResponse		"Invalid request or validation error"
//	@Failure		409		{object}	ErrorResponse				"No free short code for this URL"
//	@Failure		503		{object}	ErrorResponse				"Store unavailable"
//	@Router			/shorten [post]
func (h *Handlers) HandleShorten(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	var req application.ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode request", "error", err)
		respondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	response, err := h.service.Shorten(r.Context(), req)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			handleValidationError(w, r, validationErrors)
			return
		}
		h.respondWithServiceError(w, r, err, "Failed to shorten URL")
		return
	}

	status := http.StatusOK
	if response.Created {
		status = http.StatusCreated
	}

	logger.Info("Shortened URL", "short_code", response.ShortCode, "created", response.Created)
	respondWithJSON(w, r, status, response)
}

// HandleResolve handles the redirect endpoint.
//
//	@Summary		Redirect to the long URL
//	@Description	Resolve a short code and redirect to its long URL
//	@Tags			mappings
//	@Param			code	path	string	true	"Short code"
//	@Success		302		"Redirect to long URL"
//	@Failure		404		{object}	ErrorResponse	"Short code not found"
//	@Failure		503		{object}	ErrorResponse	"Store unavailable"
//	@Router			/shorten/{code} [get]
func (h *Handlers) HandleResolve(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if len(code) != h.service.CodeLength() {
		respondWithError(w, r, http.StatusNotFound, "Short URL not found")
		return
	}

	mapping, err := h.service.Resolve(r.Context(), code)
	if err != nil {
		h.respondWithServiceError(w, r, err, "Failed to resolve short code")
		return
	}

	logging.FromContext(r.Context()).Debug("Redirecting", "short_code", code, "long_url", mapping.LongURL)
	http.Redirect(w, r, mapping.LongURL, http.StatusFound)
}

// HandleLookup handles the JSON lookup endpoint.
//
//	@Summary		Look up a mapping by short code
//	@Tags			mappings
//	@Produce		json
//	@Param			code	path		string			true	"Short code"
//	@Success		200		{object}	domain.Mapping
//	@Failure		404		{object}	ErrorResponse	"Short code not found"
//	@Router			/api/mappings/code/{code} [get]
func (h *Handlers) HandleLookup(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.service.Resolve(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondWithServiceError(w, r, err, "Failed to look up short code")
		return
	}
	respondWithJSON(w, r, http.StatusOK, mapping)
}

// HandleGetMapping handles lookups by store identifier.
//
//	@Summary		Get a mapping by id
//	@Tags			mappings
//	@Produce		json
//	@Param			id	path		string			true	"Mapping id"
//	@Success		200	{object}	domain.Mapping
//	@Failure		404	{object}	ErrorResponse	"Mapping not found"
//	@Router			/api/mappings/{id} [get]
func (h *Handlers) HandleGetMapping(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithServiceError(w, r, err, "Failed to get mapping")
		return
	}
	respondWithJSON(w, r, http.StatusOK, mapping)
}

// HandleListMappings handles the listing endpoint.
//
//	@Summary		List mappings
//	@Tags			mappings
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"	default(50)
//	@Param			offset	query		int	false	"Offset"	default(0)
//	@Success		200		{object}	ListResponse
//	@Failure		400		{object}	ErrorResponse	"Invalid paging parameters"
//	@Router			/api/mappings [get]
func (h *Handlers) HandleListMappings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", application.DefaultListLimit)
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, "limit must be an integer")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, "offset must be an integer")
		return
	}

	mappings, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.respondWithServiceError(w, r, err, "Failed to list mappings")
		return
	}

	respondWithJSON(w, r, http.StatusOK, ListResponse{
		Items:  mappings,
		Count:  len(mappings),
		Offset: offset,
	})
}

// HandleDeleteMapping handles the administrative delete endpoint.
//
//	@Summary		Delete a mapping
//	@Tags			mappings
//	@Param			id	path	string	true	"Mapping id"
//	@Success		204	"Deleted"
//	@Failure		404	{object}	ErrorResponse	"Mapping not found"
//	@Router			/api/mappings/{id} [delete]
func (h *Handlers) HandleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondWithServiceError(w, r, err, "Failed to delete mapping")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidShortCode):
		respondWithError(w, r, http.StatusNotFound, "Short URL not found")
	case errors.Is(err, domain.ErrExhausted):
		respondWithError(w, r, http.StatusConflict, "No free short code for this URL")
	case errors.Is(err, domain.ErrDuplicateKey):
		respondWithError(w, r, http.StatusConflict, "Short code already exists")
	case errors.Is(err, domain.ErrInvalidURL):
		respondWithError(w, r, http.StatusBadRequest, "Invalid URL")
	default:
		logging.FromContext(r.Context()).Error(message, "error", err, "wait_timeout", errors.Is(err, coalesce.ErrWaitTimeout))
		respondWithError(w, r, http.StatusServiceUnavailable, message)
	}
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// ListResponse is a page of mappings.
type ListResponse struct {
	Items  []*domain.Mapping `json:"items"`
	Count  int               `json:"count"`
	Offset int               `json:"offset"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     map[string]string `json:"error"`
	Timestamp string            `json:"timestamp" example:"2024-01-31T12:00:00Z"`
}

// ValidationErrorResponse represents a validation error response.
type ValidationErrorResponse struct {
	Details map[string]string `json:"details"`
	Error   string            `json:"error" example:"Validation failed"`
}

func respondWithJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(r.Context()).Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, r *http.Request, code int, message string) {
	respondWithJSON(w, r, code, ErrorResponse{
		Error:     map[string]string{"message": message},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func handleValidationError(w http.ResponseWriter, r *http.Request, validationErrors validator.ValidationErrors) {
	details := make(map[string]string)
	for _, e := range validationErrors {
		field := getJSONFieldName(e)
		switch e.Tag() {
		case "required":
			details[field] = fmt.Sprintf("%s is required", field)
		case "url":
			details[field] = fmt.Sprintf("%s must be a valid URL", field)
		case "max":
			details[field] = fmt.Sprintf("%s must be at most %s characters long", field, e.Param())
		default:
			details[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	respondWithJSON(w, r, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "Validation failed",
		Details: details,
	})
}

// getJSONFieldName maps a validation error back to the request's JSON tag
func getJSONFieldName(e validator.FieldError) string {
	structType := requestTypes[strings.Split(e.StructNamespace(), ".")[0]]
	if structType == nil {
		return e.Field()
	}

	field, found := structType.FieldByName(e.StructField())
	if !found {
		return e.Field()
	}

	jsonTag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if jsonTag == "" {
		return e.Field()
	}
	return jsonTag
}

var requestTypes = map[string]reflect.Type{
	"ShortenRequest": reflect.TypeOf(application.ShortenRequest{}),
}
