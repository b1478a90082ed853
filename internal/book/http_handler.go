package book

import (
	"bookrecords/internal/httpx"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// Register mounts the book routes on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /books", h.Create)
	mux.HandleFunc("GET /books", h.List)
	mux.HandleFunc("GET /books/id/{id}", h.GetByID)
	mux.HandleFunc("GET /books/author/{name}", h.ListByAuthor)
	mux.HandleFunc("PUT /books/id/{id}", h.Update)
	mux.HandleFunc("DELETE /books/id/{id}", h.Delete)
}

type requiredFields struct {
	Title  string `validate:"required"`
	Author string `validate:"required"`
}

// Create handles POST /books
// @Summary Create a book
// @Tags books
// @Accept json
// @Produce json
// @Param request body Fields true "Book fields"
// @Success 201 {object} Book
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r.Body)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_INPUT", "Invalid JSON", nil)
		return
	}

	required := requiredFields{Title: valueOf(fields.Title), Author: valueOf(fields.Author)}
	if details := httpx.ValidateStruct(required); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Title and Author are required", details)
		return
	}

	created, err := h.service.Create(r.Context(), fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, created)
}

// List handles GET /books
// @Summary List and search books
// @Tags books
// @Produce json
// @Param search query string false "Substring of title, author or genre"
// @Param title query string false "Substring of title"
// @Param author query string false "Substring of author"
// @Param genre query string false "Substring of genre"
// @Param min_price query number false "Inclusive lower price bound"
// @Param max_price query number false "Inclusive upper price bound"
// @Success 200 {array} Book
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := Query{
		Search:   query.Get("search"),
		Title:    query.Get("title"),
		Author:   query.Get("author"),
		Genre:    query.Get("genre"),
		MinPrice: parseFloatParam(query.Get("min_price")),
		MaxPrice: parseFloatParam(query.Get("max_price")),
	}

	books, err := h.service.List(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, books)
}

// GetByID handles GET /books/id/{id}
// @Summary Get a book by id
// @Tags books
// @Produce json
// @Param id path int true "Book id"
// @Success 200 {object} Book
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/id/{id} [get]
func (h *HTTPHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		return
	}

	b, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, b)
}

// ListByAuthor handles GET /books/author/{name}
// @Summary List books by author substring
// @Tags books
// @Produce json
// @Param name path string true "Author substring"
// @Success 200 {array} Book
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/author/{name} [get]
func (h *HTTPHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	books, err := h.service.ListByAuthor(r.Context(), name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			msg := fmt.Sprintf("No books found for author containing '%s'", name)
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", msg, nil)
			return
		}
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, books)
}

// Update handles PUT /books/id/{id}
// @Summary Partially update a book
// @Tags books
// @Accept json
// @Produce json
// @Param id path int true "Book id"
// @Param request body Fields true "Fields to change"
// @Success 200 {object} Book
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books/id/{id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		return
	}

	// A missing record wins over a bad body.
	if _, err := h.service.GetByID(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	fields, err := decodeFields(r.Body)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_INPUT", "Invalid JSON", nil)
		return
	}

	updated, err := h.service.Update(r.Context(), id, fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, updated)
}

// Delete handles DELETE /books/id/{id}
// @Summary Delete a book
// @Tags books
// @Produce json
// @Param id path int true "Book id"
// @Success 200 {object} httpx.MessageResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books/id/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONMessage(w, "Book deleted successfully")
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrInvalidInput):
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_INPUT", "Invalid JSON", nil)
	case errors.Is(err, ErrValidation):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Title and Author are required", nil)
	case errors.Is(err, ErrConstraintViolation):
		slog.Warn("constraint violation", "err", err, "request_id", httpx.RequestIDFrom(r))
		httpx.JSONError(w, r, http.StatusBadRequest, "CONSTRAINT_VIOLATION", "Duplicate or constraint violation", nil)
	default:
		slog.Error("book store failure", "method", r.Method, "path", r.URL.Path, "err", err, "request_id", httpx.RequestIDFrom(r))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}

// decodeFields reads a non-empty JSON object into the writable field set.
func decodeFields(body io.Reader) (Fields, error) {
	if body == nil {
		return Fields{}, ErrInvalidInput
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return Fields{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil || len(keys) == 0 {
		return Fields{}, ErrInvalidInput
	}

	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return Fields{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return f, nil
}

// parseFloatParam returns nil for values that are empty, malformed or NaN,
// so that they act as if the parameter was never sent.
func parseFloatParam(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return nil
	}
	return &v
}

// pathID reads the {id} wildcard as an unsigned base-10 integer.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 63)
	if err != nil {
		return 0, false
	}
	return int64(id), true
}

func valueOf(o Optional[string]) string {
	if o.Value == nil {
		return ""
	}
	return *o.Value
}
