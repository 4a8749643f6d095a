package chatsessions

import (
	"context"
	"errors"
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
	CreateSession(ctx context.Context, userID uuid.UUID, title string, promptID *uuid.UUID) (*types.ChatSession, error)
	ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.ChatSession, int, error)
	// GetSession loads a session of userID with its messages in order.
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*types.ChatSession, error)
	DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error
	// AppendMessages stores msgs in one transaction and renames the session
	// when title is not empty.
	AppendMessages(ctx context.Context, sessionID uuid.UUID, title string, msgs ...*types.ConversationMessage) error
}

const (
	createSessionQuery = `INSERT INTO chat_sessions (user_id, title, prompt_id)
VALUES ($1, $2, $3)
RETURNING id, user_id, title, prompt_id, status, created_at, updated_at`

	countSessionsQuery = `SELECT COUNT(*) FROM chat_sessions WHERE user_id = $1`

	listSessionsQuery = `SELECT id, user_id, title, prompt_id, status, created_at, updated_at
FROM chat_sessions
WHERE user_id = $1
ORDER BY updated_at DESC, id
LIMIT $2 OFFSET $3`

	getSessionQuery = `SELECT id, user_id, title, prompt_id, status, created_at, updated_at
FROM chat_sessions
WHERE id = $1 AND user_id = $2`

	listMessagesQuery = `SELECT id, session_id, role, content, created_at
FROM chat_messages
WHERE session_id = $1
ORDER BY created_at, id`

	deleteSessionQuery = `DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2`

	insertMessageQuery = `INSERT INTO chat_messages (session_id, role, content)
VALUES ($1, $2, $3)
RETURNING id, created_at`

	touchSessionQuery = `UPDATE chat_sessions
SET updated_at = NOW(), title = COALESCE(NULLIF($2, ''), title)
WHERE id = $1`
)

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewRepositoryImpl(pgpool db.Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

func scanSession(row pgx.Row) (*types.ChatSession, error) {
	var s types.ChatSession
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.PromptID, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RepositoryImpl) CreateSession(ctx context.Context, userID uuid.UUID, title string, promptID *uuid.UUID) (*types.ChatSession, error) {
	ctx, span := otel.Tracer("ChatSessionRepo").Start(ctx, "CreateSession", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "chat_sessions"),
	))
	defer span.End()

	s, err := scanSession(r.pgpool.QueryRow(ctx, createSessionQuery, userID, title, promptID))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create chat session", slog.String("method", "CreateSession"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return nil, fmt.Errorf("database error creating chat session: %w", err)
	}
	s.Messages = []types.ConversationMessage{}
	span.SetStatus(codes.Ok, "Chat session created")
	return s, nil
}

func (r *RepositoryImpl) ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.ChatSession, int, error) {
	ctx, span := otel.Tracer("ChatSessionRepo").Start(ctx, "ListSessions", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "chat_sessions"),
	))
	defer span.End()

	var total int
	if err := r.pgpool.QueryRow(ctx, countSessionsQuery, userID).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, 0, fmt.Errorf("database error counting chat sessions: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, listSessionsQuery, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, 0, fmt.Errorf("database error listing chat sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*types.ChatSession, 0, limit)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("database error scanning chat session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("database error reading chat sessions: %w", err)
	}
	span.SetStatus(codes.Ok, "Chat sessions listed")
	return sessions, total, nil
}

func (r *RepositoryImpl) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*types.ChatSession, error) {
	ctx, span := otel.Tracer("ChatSessionRepo").Start(ctx, "GetSession", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "chat_sessions"),
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()

	s, err := scanSession(r.pgpool.QueryRow(ctx, getSessionQuery, sessionID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("chat session not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching chat session: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, listMessagesQuery, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error listing chat messages: %w", err)
	}
	defer rows.Close()

	s.Messages = []types.ConversationMessage{}
	for rows.Next() {
		var m types.ConversationMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning chat message: %w", err)
		}
		s.Messages = append(s.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error reading chat messages: %w", err)
	}

	span.SetAttributes(attribute.Int("session.messages", len(s.Messages)))
	span.SetStatus(codes.Ok, "Chat session fetched")
	return s, nil
}

func (r *RepositoryImpl) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	ctx, span := otel.Tracer("ChatSessionRepo").Start(ctx, "DeleteSession", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, deleteSessionQuery, sessionID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("database error deleting chat session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat session not found: %w", types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Chat session deleted")
	return nil
}

func (r *RepositoryImpl) AppendMessages(ctx context.Context, sessionID uuid.UUID, title string, msgs ...*types.ConversationMessage) error {
	ctx, span := otel.Tracer("ChatSessionRepo").Start(ctx, "AppendMessages", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "chat_messages"),
		attribute.Int("messages", len(msgs)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "AppendMessages"), slog.String("sessionID", sessionID.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			l.WarnContext(ctx, "Rollback failed", slog.Any("error", err))
		}
	}()

	for _, m := range msgs {
		m.SessionID = sessionID
		if err := tx.QueryRow(ctx, insertMessageQuery, sessionID, string(m.Role), m.Content).Scan(&m.ID, &m.CreatedAt); err != nil {
			l.ErrorContext(ctx, "Failed to insert chat message", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB insert failed")
			return fmt.Errorf("database error storing chat message: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, touchSessionQuery, sessionID, title); err != nil {
		span.RecordError(err)
		return fmt.Errorf("database error updating chat session: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return fmt.Errorf("failed to commit chat messages: %w", err)
	}
	span.SetStatus(codes.Ok, "Chat messages stored")
	return nil
}
