package chatsessions

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/promptveo-api/internal/domain/features"
	"github.com/FACorreiaa/promptveo-api/internal/llm"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/cache"
)

const (
	replyCacheTTL   = time.Hour
	defaultTitle    = "New session"
	maxTitleRunes   = 60
	maxMessageRunes = 4000
	defaultPageSize = 20
	maxPageSize     = 100
)

const draftInstruction = `You are a prompt engineer for Google Veo 3 video generation.
Turn the user's idea into a production-ready prompt. Answer with a single JSON object:
{
  "title": "short title",
  "prompt": "one paragraph prompt ready to paste into Veo 3",
  "scene": "subject, setting and action",
  "camera": "shot type, lens and movement",
  "lighting": "lighting and color palette",
  "audio": "ambient sound, music and dialogue",
  "style": "visual style",
  "duration_seconds": 8
}
Keep earlier decisions from the conversation unless the user changes them.`

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	CreateSession(ctx context.Context, userID uuid.UUID, title string, promptID *uuid.UUID) (*types.ChatSession, error)
	ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) (*types.ChatSessionsPage, error)
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*types.ChatSession, error)
	DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error
	SendMessage(ctx context.Context, userID, sessionID uuid.UUID, content string) (*Reply, error)
}

// Reply is the outcome of one drafting turn.
type Reply struct {
	UserMessage      *types.ConversationMessage `json:"user_message"`
	AssistantMessage *types.ConversationMessage `json:"assistant_message"`
	// Draft is set when the assistant answered with a JSON object.
	Draft  json.RawMessage `json:"draft,omitempty"`
	Cached bool            `json:"cached"`
}

type ServiceImpl struct {
	logger   *slog.Logger
	repo     Repository
	llm      llm.ChatClient
	features features.Source
	replies  cache.Store
}

// NewChatSessionService builds the service. client may be nil when no LLM is
// configured; SendMessage then fails with ErrUnavailable.
func NewChatSessionService(repo Repository, client llm.ChatClient, source features.Source, replies cache.Store, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		llm:      client,
		features: source,
		replies:  replies,
	}
}

func (s *ServiceImpl) CreateSession(ctx context.Context, userID uuid.UUID, title string, promptID *uuid.UUID) (*types.ChatSession, error) {
	ctx, span := otel.Tracer("ChatSessionService").Start(ctx, "CreateSession", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	title = truncate(title, maxTitleRunes)

	session, err := s.repo.CreateSession(ctx, userID, title, promptID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create session")
		return nil, fmt.Errorf("error creating chat session: %w", err)
	}
	span.SetStatus(codes.Ok, "Session created")
	return session, nil
}

func (s *ServiceImpl) ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) (*types.ChatSessionsPage, error) {
	ctx, span := otel.Tracer("ChatSessionService").Start(ctx, "ListSessions")
	defer span.End()

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	sessions, total, err := s.repo.ListSessions(ctx, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list sessions")
		return nil, fmt.Errorf("error listing chat sessions: %w", err)
	}
	span.SetStatus(codes.Ok, "Sessions listed")
	return &types.ChatSessionsPage{Sessions: sessions, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *ServiceImpl) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*types.ChatSession, error) {
	session, err := s.repo.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error loading chat session: %w", err)
	}
	return session, nil
}

func (s *ServiceImpl) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	if err := s.repo.DeleteSession(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("error deleting chat session: %w", err)
	}
	return nil
}

// SendMessage runs one drafting turn. Sessions accept FreeChatMessages user
// messages on every plan; later turns need the create feature.
func (s *ServiceImpl) SendMessage(ctx context.Context, userID, sessionID uuid.UUID, content string) (*Reply, error) {
	ctx, span := otel.Tracer("ChatSessionService").Start(ctx, "SendMessage", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SendMessage"), slog.String("sessionID", sessionID.String()))

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("message is empty: %w", types.ErrBadRequest)
	}
	if utf8.RuneCountInString(content) > maxMessageRunes {
		return nil, fmt.Errorf("message exceeds %d characters: %w", maxMessageRunes, types.ErrBadRequest)
	}

	session, err := s.repo.GetSession(ctx, userID, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error loading chat session: %w", err)
	}

	if session.UserMessageCount() >= types.FreeChatMessages {
		f, err := s.features.GetFeatures(ctx, &userID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error resolving features: %w", err)
		}
		if err := f.Require(types.FeatureCreate); err != nil {
			span.SetStatus(codes.Error, "upgrade required")
			return nil, err
		}
	}

	prompt := buildPrompt(session.Messages, content)
	key := s.cacheKey(prompt)

	var answer string
	cached, err := s.replies.Get(ctx, key, &answer)
	if err != nil {
		l.WarnContext(ctx, "Reply cache lookup failed", slog.Any("error", err))
		cached = false
	}
	if cached {
		l.DebugContext(ctx, "Reply served from cache")
	} else {
		answer, err = s.generate(ctx, prompt)
		if err != nil {
			l.ErrorContext(ctx, "LLM request failed", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "LLM request failed")
			return nil, err
		}
		if err := s.replies.Set(ctx, key, answer, replyCacheTTL); err != nil {
			l.WarnContext(ctx, "Failed to cache reply", slog.Any("error", err))
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", cached))

	userMsg := &types.ConversationMessage{Role: types.RoleUser, Content: content}
	assistantMsg := &types.ConversationMessage{Role: types.RoleAssistant, Content: answer}

	title := ""
	if session.Title == defaultTitle && session.UserMessageCount() == 0 {
		title = truncate(content, maxTitleRunes)
	}
	if err := s.repo.AppendMessages(ctx, sessionID, title, userMsg, assistantMsg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store messages")
		return nil, fmt.Errorf("error storing chat messages: %w", err)
	}

	reply := &Reply{UserMessage: userMsg, AssistantMessage: assistantMsg, Cached: cached}
	if doc := llm.CleanJSON(answer); json.Valid([]byte(doc)) && strings.HasPrefix(doc, "{") {
		reply.Draft = json.RawMessage(doc)
	}
	span.SetStatus(codes.Ok, "Message answered")
	return reply, nil
}

func (s *ServiceImpl) generate(ctx context.Context, prompt string) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("prompt drafting is not configured: %w", types.ErrUnavailable)
	}
	start := time.Now()
	resp, err := s.llm.GenerateResponse(ctx, prompt, &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0.7),
		SystemInstruction: genai.NewContentFromText(draftInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("LLM request failed: %w: %w", types.ErrUnavailable, err)
	}
	text, err := llm.ResponseText(resp)
	if err != nil {
		return "", fmt.Errorf("LLM request failed: %w: %w", types.ErrUnavailable, err)
	}
	s.logger.DebugContext(ctx, "LLM response received",
		slog.Int64("latency_ms", time.Since(start).Milliseconds()),
		slog.Int("response_length", len(text)))
	return text, nil
}

func (s *ServiceImpl) cacheKey(prompt string) string {
	model := ""
	if s.llm != nil {
		model = s.llm.Model()
	}
	sum := md5.Sum([]byte(model + "\x00" + prompt))
	return "chat:" + hex.EncodeToString(sum[:])
}

// buildPrompt renders the conversation so far followed by the new message.
func buildPrompt(history []types.ConversationMessage, message string) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			if m.Role == types.RoleSystem {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}
	b.WriteString("user: ")
	b.WriteString(message)
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
