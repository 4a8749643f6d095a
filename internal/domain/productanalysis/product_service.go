package productanalysis

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/promptveo-api/internal/domain/features"
	"github.com/FACorreiaa/promptveo-api/internal/llm"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/cache"
)

const (
	analysisCacheTTL = time.Hour
	maxNotesRunes    = 1000
)

const analysisInstruction = `You analyse product photos for video advertising.
Answer with a single JSON object and nothing else:
{
  "product_name": "name of the product",
  "category": "product category",
  "description": "two sentences describing the product",
  "key_features": ["feature", "feature"],
  "target_audience": "who the product is for",
  "suggested_prompt": "a Veo 3 prompt for an 8 second product video"
}`

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Analyze(ctx context.Context, userID uuid.UUID, imageURL, notes string) (*types.UserProduct, error)
	ListProducts(ctx context.Context, userID uuid.UUID) ([]*types.UserProduct, error)
	DeleteProduct(ctx context.Context, userID, productID uuid.UUID) error
}

type ServiceImpl struct {
	logger   *slog.Logger
	repo     Repository
	vision   llm.VisionClient
	features features.Source
	results  cache.Store
}

// NewProductService builds the service. vision may be nil when OpenRouter is
// not configured; Analyze then fails with ErrUnavailable.
func NewProductService(repo Repository, vision llm.VisionClient, source features.Source, results cache.Store, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		vision:   vision,
		features: source,
		results:  results,
	}
}

func (s *ServiceImpl) Analyze(ctx context.Context, userID uuid.UUID, imageURL, notes string) (*types.UserProduct, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "Analyze", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Analyze"), slog.String("userID", userID.String()))

	imageURL = strings.TrimSpace(imageURL)
	notes = strings.TrimSpace(notes)
	if err := validateImageURL(imageURL); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(notes) > maxNotesRunes {
		return nil, fmt.Errorf("notes exceed %d characters: %w", maxNotesRunes, types.ErrBadRequest)
	}

	f, err := s.features.GetFeatures(ctx, &userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error resolving features: %w", err)
	}
	if err := f.Require(types.FeatureCreate); err != nil {
		span.SetStatus(codes.Error, "upgrade required")
		return nil, err
	}
	if s.vision == nil {
		return nil, fmt.Errorf("product analysis is not configured: %w", types.ErrUnavailable)
	}

	key := s.cacheKey(imageURL, notes)
	analysis := &types.ProductAnalysis{}
	cached, err := s.results.Get(ctx, key, analysis)
	if err != nil {
		l.WarnContext(ctx, "Analysis cache lookup failed", slog.Any("error", err))
		cached = false
	}
	if !cached {
		analysis, err = s.analyze(ctx, imageURL, notes)
		if err != nil {
			l.ErrorContext(ctx, "Product analysis failed", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "analysis failed")
			return nil, err
		}
		if err := s.results.Set(ctx, key, analysis, analysisCacheTTL); err != nil {
			l.WarnContext(ctx, "Failed to cache analysis", slog.Any("error", err))
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", cached))

	product := &types.UserProduct{
		UserID:   userID,
		ImageURL: imageURL,
		Notes:    notes,
		Analysis: *analysis,
		Model:    s.vision.Model(),
	}
	if err := s.repo.SaveProduct(ctx, product); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store product")
		return nil, fmt.Errorf("error storing product analysis: %w", err)
	}
	l.InfoContext(ctx, "Product analysed", slog.String("productID", product.ID.String()), slog.Bool("cached", cached))
	span.SetStatus(codes.Ok, "Product analysed")
	return product, nil
}

func (s *ServiceImpl) analyze(ctx context.Context, imageURL, notes string) (*types.ProductAnalysis, error) {
	prompt := "Analyse the product in this image."
	if notes != "" {
		prompt += "\nSeller notes: " + notes
	}
	text, err := s.vision.DescribeImage(ctx, analysisInstruction, prompt, imageURL)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w: %w", types.ErrUnavailable, err)
	}
	return ParseAnalysis(text)
}

// ParseAnalysis decodes a model answer into a ProductAnalysis.
func ParseAnalysis(text string) (*types.ProductAnalysis, error) {
	var a types.ProductAnalysis
	if err := json.Unmarshal([]byte(llm.CleanJSON(text)), &a); err != nil {
		return nil, fmt.Errorf("model returned invalid analysis: %w: %w", types.ErrUnavailable, err)
	}
	a.ProductName = strings.TrimSpace(a.ProductName)
	if a.ProductName == "" {
		return nil, fmt.Errorf("model returned no product name: %w", types.ErrUnavailable)
	}
	if a.KeyFeatures == nil {
		a.KeyFeatures = []string{}
	}
	return &a, nil
}

func (s *ServiceImpl) cacheKey(imageURL, notes string) string {
	sum := md5.Sum([]byte(s.vision.Model() + "\x00" + imageURL + "\x00" + notes))
	return "product:" + hex.EncodeToString(sum[:])
}

func validateImageURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("image_url is required: %w", types.ErrBadRequest)
	}
	if strings.HasPrefix(raw, "data:image/") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("image_url must be an http(s) or data:image URL: %w", types.ErrBadRequest)
	}
	return nil
}

func (s *ServiceImpl) ListProducts(ctx context.Context, userID uuid.UUID) ([]*types.UserProduct, error) {
	ctx, span := otel.Tracer("ProductService").Start(ctx, "ListProducts")
	defer span.End()

	products, err := s.repo.ListProducts(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list products")
		return nil, fmt.Errorf("error listing products: %w", err)
	}
	span.SetStatus(codes.Ok, "Products listed")
	return products, nil
}

func (s *ServiceImpl) DeleteProduct(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, userID, productID); err != nil {
		return fmt.Errorf("error deleting product: %w", err)
	}
	return nil
}
