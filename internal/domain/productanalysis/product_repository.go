package productanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/db"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	SaveProduct(ctx context.Context, p *types.UserProduct) error
	ListProducts(ctx context.Context, userID uuid.UUID) ([]*types.UserProduct, error)
	DeleteProduct(ctx context.Context, userID, productID uuid.UUID) error
}

const (
	insertProductQuery = `INSERT INTO user_products (user_id, image_url, notes, analysis, model)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`

	listProductsQuery = `SELECT id, user_id, image_url, notes, analysis, model, created_at
FROM user_products
WHERE user_id = $1
ORDER BY created_at DESC, id`

	deleteProductQuery = `DELETE FROM user_products WHERE id = $1 AND user_id = $2`
)

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewRepositoryImpl(pgpool db.Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

func (r *RepositoryImpl) SaveProduct(ctx context.Context, p *types.UserProduct) error {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "SaveProduct", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "user_products"),
	))
	defer span.End()

	analysis, err := json.Marshal(p.Analysis)
	if err != nil {
		return fmt.Errorf("failed to encode product analysis: %w", err)
	}
	err = r.pgpool.QueryRow(ctx, insertProductQuery, p.UserID, p.ImageURL, p.Notes, analysis, p.Model).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to store product analysis", slog.String("method", "SaveProduct"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return fmt.Errorf("database error storing product: %w", err)
	}
	span.SetStatus(codes.Ok, "Product stored")
	return nil
}

func (r *RepositoryImpl) ListProducts(ctx context.Context, userID uuid.UUID) ([]*types.UserProduct, error) {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "ListProducts", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_products"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, listProductsQuery, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing products: %w", err)
	}
	defer rows.Close()

	products := []*types.UserProduct{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error reading products: %w", err)
	}
	span.SetAttributes(attribute.Int("products.count", len(products)))
	span.SetStatus(codes.Ok, "Products listed")
	return products, nil
}

func scanProduct(row pgx.Row) (*types.UserProduct, error) {
	var (
		p        types.UserProduct
		analysis []byte
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.ImageURL, &p.Notes, &analysis, &p.Model, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("database error scanning product: %w", err)
	}
	if len(analysis) > 0 {
		if err := json.Unmarshal(analysis, &p.Analysis); err != nil {
			return nil, fmt.Errorf("failed to decode product analysis: %w", err)
		}
	}
	if p.Analysis.KeyFeatures == nil {
		p.Analysis.KeyFeatures = []string{}
	}
	return &p, nil
}

func (r *RepositoryImpl) DeleteProduct(ctx context.Context, userID, productID uuid.UUID) error {
	ctx, span := otel.Tracer("ProductRepo").Start(ctx, "DeleteProduct", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, deleteProductQuery, productID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("database error deleting product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product not found: %w", types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Product deleted")
	return nil
}
