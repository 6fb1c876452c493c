// Package service coordinates the blob store and the product store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/productcatalog/internal/catalog/blob"
	cerrors "github.com/abgdnv/productcatalog/internal/catalog/errors"
	"github.com/abgdnv/productcatalog/internal/catalog/store"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	"github.com/abgdnv/productcatalog/pkg/messaging/events"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MissingPolicy decides what DeleteProduct does when the product does not exist.
type MissingPolicy string

const (
	OnMissingNoop  MissingPolicy = "noop"
	OnMissingError MissingPolicy = "error"
)

// ReplacePolicy orders the blob operations when an update carries a new image.
type ReplacePolicy string

const (
	// ReplaceDeleteFirst removes the old image before writing the new one.
	ReplaceDeleteFirst ReplacePolicy = "delete-first"
	// ReplaceWriteFirst writes the new image and persists the record before removing the old image.
	ReplaceWriteFirst ReplacePolicy = "write-first"
)

// Options tunes the catalog workflows. Zero values select noop and delete-first.
type Options struct {
	OnMissing    MissingPolicy
	ImageReplace ReplacePolicy
}

// CatalogService manages products and their images.
type CatalogService interface {
	// ListProducts returns every product ordered by ID.
	ListProducts(ctx context.Context) ([]store.Product, error)

	// GetProduct returns a single product. Returns a NotFoundError if it does not exist.
	GetProduct(ctx context.Context, id int64) (*store.Product, error)

	// CreateProduct stores the image and then the product record.
	CreateProduct(ctx context.Context, input ProductInput) (*store.Product, error)

	// UpdateProduct overwrites a product, replacing its image when one is supplied.
	UpdateProduct(ctx context.Context, id int64, input ProductInput) (*store.Product, error)

	// DeleteProduct removes the product record and then its image.
	DeleteProduct(ctx context.Context, id int64) error

	// Image returns the stored image for key.
	Image(ctx context.Context, key string) ([]byte, error)
}

// Service implements CatalogService.
type Service struct {
	products  store.ProductStore
	blobs     blob.Store
	publisher messaging.Publisher
	logger    *slog.Logger
	validate  *validator.Validate
	tracer    trace.Tracer
	changes   metric.Int64Counter
	opts      Options
	now       func() time.Time
}

// NewService creates a Service. A nil publisher drops events.
func NewService(products store.ProductStore, blobs blob.Store, publisher messaging.Publisher, logger *slog.Logger, opts Options) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if opts.OnMissing == "" {
		opts.OnMissing = OnMissingNoop
	}
	if opts.ImageReplace == "" {
		opts.ImageReplace = ReplaceDeleteFirst
	}
	meter := otel.Meter("github.com/abgdnv/productcatalog/internal/catalog/service")
	changes, err := meter.Int64Counter("catalog.product.changes",
		metric.WithDescription("Number of products created, updated or deleted"))
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog.product.changes counter: %v", err))
	}
	return &Service{
		products:  products,
		blobs:     blobs,
		publisher: publisher,
		logger:    logger.With("component", "catalog_service"),
		validate:  newValidator(),
		tracer:    otel.Tracer("github.com/abgdnv/productcatalog/internal/catalog/service"),
		changes:   changes,
		opts:      opts,
		now:       time.Now,
	}
}

// ListProducts retrieves every product ordered by ascending ID.
func (s *Service) ListProducts(ctx context.Context) (_ []store.Product, err error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.ListProducts")
	defer func() { endSpan(span, err) }()

	products, err := s.products.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	span.SetAttributes(attribute.Int("product.count", len(products)))
	return products, nil
}

// GetProduct retrieves a product by its ID.
// Returns a NotFoundError if no product exists with the given ID.
func (s *Service) GetProduct(ctx context.Context, id int64) (_ *store.Product, err error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.GetProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer func() { endSpan(span, err) }()

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// CreateProduct validates the input, stores the image and then persists the product.
// A failed persist removes the image that was just written.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (_ *store.Product, err error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.CreateProduct")
	defer func() { endSpan(span, err) }()

	if err := validateInput(s.validate, input, true); err != nil {
		return nil, err
	}
	price, _ := parsePrice(input.Price)

	now := s.now().UTC()
	key := imageKey(now, input.ImageName)
	if err := s.blobs.Put(ctx, key, input.Image); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	created, err := s.products.Create(ctx, &store.Product{
		Name:          input.Name,
		Brand:         input.Brand,
		Category:      input.Category,
		Price:         price,
		Description:   input.Description,
		CreatedAt:     now,
		ImageFileName: key,
	})
	if err != nil {
		s.discardBlob(ctx, key, "orphaned image after failed create")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	span.SetAttributes(attribute.Int64("product.id", created.ID))

	s.logger.InfoContext(ctx, "product created", "product_id", created.ID, "image", key)
	s.publish(ctx, events.ProductCreated, created)
	return created, nil
}

// UpdateProduct overwrites the mutable fields of a product. A supplied image replaces
// the current one in the order selected by Options.ImageReplace.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input ProductInput) (_ *store.Product, err error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.UpdateProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer func() { endSpan(span, err) }()

	existing, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if err := validateInput(s.validate, input, false); err != nil {
		return nil, err
	}
	price, _ := parsePrice(input.Price)

	updated := *existing
	oldKey := existing.ImageFileName
	newKey := ""
	if input.HasImage() {
		newKey = imageKey(s.now().UTC(), input.ImageName)
		if s.opts.ImageReplace == ReplaceDeleteFirst {
			s.discardBlob(ctx, oldKey, "failed to delete previous image")
		}
		if err := s.blobs.Put(ctx, newKey, input.Image); err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		updated.ImageFileName = newKey
	}
	updated.Name = input.Name
	updated.Brand = input.Brand
	updated.Category = input.Category
	updated.Price = price
	updated.Description = input.Description

	if err := s.products.Update(ctx, &updated); err != nil {
		if newKey != "" && s.opts.ImageReplace == ReplaceWriteFirst && newKey != oldKey {
			s.discardBlob(ctx, newKey, "orphaned image after failed update")
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if newKey != "" && s.opts.ImageReplace == ReplaceWriteFirst && newKey != oldKey {
		s.discardBlob(ctx, oldKey, "failed to delete previous image")
	}

	s.logger.InfoContext(ctx, "product updated", "product_id", id, "image", updated.ImageFileName)
	s.publish(ctx, events.ProductUpdated, &updated)
	return &updated, nil
}

// DeleteProduct removes the product record and then, best-effort, its image.
// A missing product is handled according to Options.OnMissing.
func (s *Service) DeleteProduct(ctx context.Context, id int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.DeleteProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer func() { endSpan(span, err) }()

	existing, err := s.products.FindByID(ctx, id)
	if err != nil {
		return s.missing(ctx, id, err)
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return s.missing(ctx, id, err)
	}
	s.discardBlob(ctx, existing.ImageFileName, "failed to delete image of removed product")

	s.logger.InfoContext(ctx, "product deleted", "product_id", id)
	s.publish(ctx, events.ProductDeleted, existing)
	return nil
}

// Image returns the stored image bytes for key.
func (s *Service) Image(ctx context.Context, key string) ([]byte, error) {
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// missing applies the OnMissing policy to a lookup or delete error.
func (s *Service) missing(ctx context.Context, id int64, err error) error {
	if !errors.Is(err, cerrors.ErrProductNotFound) {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if s.opts.OnMissing == OnMissingError {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.logger.DebugContext(ctx, "delete of missing product ignored", "product_id", id)
	return nil
}

// discardBlob deletes key and only logs a failure.
func (s *Service) discardBlob(ctx context.Context, key, msg string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, msg, "image", key, "error", err)
	}
}

// publish counts the change and emits its event; a publish failure is only logged.
func (s *Service) publish(ctx context.Context, kind events.Kind, p *store.Product) {
	s.changes.Add(ctx, 1, metric.WithAttributes(attribute.String("change", kind.String())))
	event := events.ProductEvent{
		Kind:          kind,
		ProductID:     p.ID,
		Name:          p.Name,
		ImageFileName: p.ImageFileName,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event", "subject", event.Subject(), "product_id", p.ID, "error", err)
	}
}

func imageKey(at time.Time, original string) string {
	return fmt.Sprintf("%d_%s", at.UnixMilli(), storageName(original))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
