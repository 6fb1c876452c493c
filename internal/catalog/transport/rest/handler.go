// Package rest provides HTTP handlers for the product catalog.
package rest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/abgdnv/productcatalog/internal/catalog/blob"
	cerrors "github.com/abgdnv/productcatalog/internal/catalog/errors"
	"github.com/abgdnv/productcatalog/internal/catalog/service"
	"github.com/abgdnv/productcatalog/pkg/web"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
)

const (
	imageFormField   = "imageFile"
	multipartMemory  = 8 << 20
	DefaultMaxUpload = 10 << 20
)

type Handler struct {
	service        service.CatalogService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewHandler creates a Handler. Request bodies larger than maxUploadBytes are rejected with 413.
func NewHandler(service service.CatalogService, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUpload
	}
	return &Handler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the catalog service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})

	r.Get("/images/{key}", h.Image)
	r.Get("/healthz", h.HealthCheck)
}

// List returns all products ordered by ID.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to fetch products")
		return
	}
	h.logger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

// Get returns one product.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	found, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err, fmt.Sprintf("Failed to retrieve product with ID %d", id))
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, found)
}

// Create handles a multipart product form with a required image.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.readForm(w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to create product")
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

// Update handles a product form. Omitting the image keeps the current one.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	input, ok := h.readForm(w, r)
	if !ok {
		return
	}
	updated, err := h.service.UpdateProduct(r.Context(), id, input)
	if err != nil {
		h.respondServiceError(w, r, err, fmt.Sprintf("Failed to update product with ID %d", id))
		return
	}
	h.logger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.respondServiceError(w, r, err, fmt.Sprintf("Failed to delete product with ID %d", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Image serves a stored image with a sniffed content type.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := blob.ValidateKey(key); err != nil {
		h.logger.WarnContext(r.Context(), "Rejected image key", "key", key)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid image name")
		return
	}
	data, err := h.service.Image(r.Context(), key)
	if err != nil {
		if errors.Is(err, cerrors.ErrBlobNotFound) {
			web.RespondError(w, h.logger, http.StatusNotFound, "Image not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "Error reading image", "key", key, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to read image")
		return
	}
	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// readForm parses a multipart or urlencoded product form.
// On failure it writes the response and returns false.
func (h *Handler) readForm(w http.ResponseWriter, r *http.Request) (service.ProductInput, bool) {
	var input service.ProductInput
	if r.ContentLength > h.maxUploadBytes {
		h.respondTooLarge(w, r)
		return input, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondTooLarge(w, r)
			return input, false
		}
		h.logger.WarnContext(r.Context(), "Error parsing form", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid form body")
		return input, false
	}

	input.Name = r.FormValue("name")
	input.Brand = r.FormValue("brand")
	input.Category = r.FormValue("category")
	input.Price = r.FormValue("price")
	input.Description = r.FormValue("description")

	file, header, err := r.FormFile(imageFormField)
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return input, true
	case err != nil:
		h.logger.WarnContext(r.Context(), "Error reading image upload", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid image upload")
		return input, false
	}
	defer func() { _ = file.Close() }()

	input.Image, err = io.ReadAll(file)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Error reading image upload", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid image upload")
		return input, false
	}
	input.ImageName = header.Filename
	return input, true
}

func (h *Handler) respondTooLarge(w http.ResponseWriter, r *http.Request) {
	h.logger.WarnContext(r.Context(), "Upload too large", "limit", h.maxUploadBytes, "content_length", r.ContentLength)
	web.RespondError(w, h.logger, http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Request body exceeds %d bytes", h.maxUploadBytes))
}

// respondServiceError maps catalog errors to HTTP status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	var (
		ve *cerrors.ValidationError
		nf *cerrors.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", ve.Map())
		web.RespondValidationErrors(w, h.logger, ve.Map())
	case errors.As(err, &nf):
		h.logger.WarnContext(r.Context(), "Product not found", "ID", nf.ID)
		web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", nf.ID))
	default:
		h.logger.ErrorContext(r.Context(), failure, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, failure)
	}
}
