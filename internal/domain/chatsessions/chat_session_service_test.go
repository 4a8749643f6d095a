package chatsessions

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/FACorreiaa/promptveo-api/internal/domain/features"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/cache"
)

type memoryRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*types.ChatSession
	titles   []string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sessions: make(map[uuid.UUID]*types.ChatSession)}
}

func (m *memoryRepo) CreateSession(_ context.Context, userID uuid.UUID, title string, promptID *uuid.UUID) (*types.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &types.ChatSession{ID: uuid.New(), UserID: userID, Title: title, PromptID: promptID, Status: types.StatusSessionActive, Messages: []types.ConversationMessage{}}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memoryRepo) ListSessions(_ context.Context, userID uuid.UUID, limit, offset int) ([]*types.ChatSession, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.ChatSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) GetSession(_ context.Context, userID, sessionID uuid.UUID) (*types.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, types.ErrNotFound
	}
	c := *s
	c.Messages = append([]types.ConversationMessage(nil), s.Messages...)
	return &c, nil
}

func (m *memoryRepo) DeleteSession(_ context.Context, userID, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return types.ErrNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *memoryRepo) AppendMessages(_ context.Context, sessionID uuid.UUID, title string, msgs ...*types.ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return types.ErrNotFound
	}
	for _, msg := range msgs {
		msg.ID, msg.SessionID, msg.CreatedAt = uuid.New(), sessionID, time.Now()
		s.Messages = append(s.Messages, *msg)
	}
	if title != "" {
		s.Title = title
		m.titles = append(m.titles, title)
	}
	return nil
}

type scriptedLLM struct {
	answer string
	err    error
	calls  int
	last   string
}

func (f *scriptedLLM) GenerateResponse(_ context.Context, prompt string, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.last = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: f.answer}}},
	}}}, nil
}

func (f *scriptedLLM) Model() string { return "gemini-test" }

func newTestService(client *scriptedLLM, sub *types.Subscription) (*ServiceImpl, *memoryRepo) {
	repo := newMemoryRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := cache.NewMemory(time.Hour, time.Hour)
	if client == nil {
		return NewChatSessionService(repo, nil, features.Fixed(sub), store, logger), repo
	}
	return NewChatSessionService(repo, client, features.Fixed(sub), store, logger), repo
}

func TestCreateSessionDefaultsTitle(t *testing.T) {
	svc, _ := newTestService(&scriptedLLM{}, nil)
	userID := uuid.New()

	s, err := svc.CreateSession(context.Background(), userID, "   ", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultTitle, s.Title)

	long := strings.Repeat("a", 100)
	s, err = svc.CreateSession(context.Background(), userID, long, nil)
	require.NoError(t, err)
	assert.Equal(t, maxTitleRunes, len([]rune(s.Title)))
}

func TestListSessionsClampsPaging(t *testing.T) {
	svc, _ := newTestService(&scriptedLLM{}, nil)
	page, err := svc.ListSessions(context.Background(), uuid.New(), 1000, -3)
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, 0, page.Total)
}

func TestSendMessageDraftAndRename(t *testing.T) {
	client := &scriptedLLM{answer: "```json\n{\"title\":\"Harbor\",\"prompt\":\"fog rolls in\",}\n```"}
	svc, repo := newTestService(client, nil)
	ctx := context.Background()
	userID := uuid.New()

	session, err := svc.CreateSession(ctx, userID, "", nil)
	require.NoError(t, err)

	reply, err := svc.SendMessage(ctx, userID, session.ID, "  a foggy harbor at dawn ")
	require.NoError(t, err)
	assert.False(t, reply.Cached)
	assert.Equal(t, "a foggy harbor at dawn", reply.UserMessage.Content)
	assert.Equal(t, types.RoleAssistant, reply.AssistantMessage.Role)
	assert.JSONEq(t, `{"title":"Harbor","prompt":"fog rolls in"}`, string(reply.Draft))
	assert.Equal(t, []string{"a foggy harbor at dawn"}, repo.titles)

	stored, err := svc.GetSession(ctx, userID, session.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 2)

	_, err = svc.SendMessage(ctx, userID, session.ID, "make it night")
	require.NoError(t, err)
	assert.Contains(t, client.last, "Conversation so far:")
	assert.Contains(t, client.last, "assistant: ")
	assert.Len(t, repo.titles, 1)
}

func TestSendMessageCachesReplies(t *testing.T) {
	client := &scriptedLLM{answer: "plain text answer"}
	svc, _ := newTestService(client, nil)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.CreateSession(ctx, userID, "one", nil)
	require.NoError(t, err)
	second, err := svc.CreateSession(ctx, userID, "two", nil)
	require.NoError(t, err)

	r1, err := svc.SendMessage(ctx, userID, first.ID, "desert at noon")
	require.NoError(t, err)
	r2, err := svc.SendMessage(ctx, userID, second.ID, "desert at noon")
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.False(t, r1.Cached)
	assert.True(t, r2.Cached)
	assert.Nil(t, r2.Draft)
}

func TestSendMessageFreeLimit(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("free plan stops after the allowance", func(t *testing.T) {
		client := &scriptedLLM{answer: "ok"}
		svc, _ := newTestService(client, nil)
		session, err := svc.CreateSession(ctx, userID, "", nil)
		require.NoError(t, err)

		for i := 0; i < types.FreeChatMessages; i++ {
			_, err := svc.SendMessage(ctx, userID, session.ID, "turn "+string(rune('a'+i)))
			require.NoError(t, err)
		}
		_, err = svc.SendMessage(ctx, userID, session.ID, "one more")
		assert.ErrorIs(t, err, types.ErrUpgradeRequired)
		assert.Equal(t, types.FreeChatMessages, client.calls)
	})

	t.Run("pro plan keeps going", func(t *testing.T) {
		client := &scriptedLLM{answer: "ok"}
		svc, _ := newTestService(client, &types.Subscription{Status: types.StatusActive, Plan: types.PlanPro})
		session, err := svc.CreateSession(ctx, userID, "", nil)
		require.NoError(t, err)

		for i := 0; i <= types.FreeChatMessages; i++ {
			_, err := svc.SendMessage(ctx, userID, session.ID, "turn "+string(rune('a'+i)))
			require.NoError(t, err)
		}
	})
}

func TestSendMessageErrors(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("empty message", func(t *testing.T) {
		svc, _ := newTestService(&scriptedLLM{}, nil)
		_, err := svc.SendMessage(ctx, userID, uuid.New(), "  ")
		assert.ErrorIs(t, err, types.ErrBadRequest)
	})

	t.Run("too long", func(t *testing.T) {
		svc, _ := newTestService(&scriptedLLM{}, nil)
		_, err := svc.SendMessage(ctx, userID, uuid.New(), strings.Repeat("x", maxMessageRunes+1))
		assert.ErrorIs(t, err, types.ErrBadRequest)
	})

	t.Run("someone else's session", func(t *testing.T) {
		svc, _ := newTestService(&scriptedLLM{}, nil)
		session, err := svc.CreateSession(ctx, uuid.New(), "", nil)
		require.NoError(t, err)
		_, err = svc.SendMessage(ctx, userID, session.ID, "hi")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("no model configured", func(t *testing.T) {
		svc, _ := newTestService(nil, nil)
		session, err := svc.CreateSession(ctx, userID, "", nil)
		require.NoError(t, err)
		_, err = svc.SendMessage(ctx, userID, session.ID, "hi")
		assert.ErrorIs(t, err, types.ErrUnavailable)
	})

	t.Run("model failure", func(t *testing.T) {
		svc, repo := newTestService(&scriptedLLM{err: errors.New("quota exceeded")}, nil)
		session, err := svc.CreateSession(ctx, userID, "", nil)
		require.NoError(t, err)
		_, err = svc.SendMessage(ctx, userID, session.ID, "hi")
		assert.ErrorIs(t, err, types.ErrUnavailable)
		assert.Empty(t, repo.sessions[session.ID].Messages)
	})

	t.Run("empty answer", func(t *testing.T) {
		svc, _ := newTestService(&scriptedLLM{answer: "   "}, nil)
		session, err := svc.CreateSession(ctx, userID, "", nil)
		require.NoError(t, err)
		_, err = svc.SendMessage(ctx, userID, session.ID, "hi")
		assert.ErrorIs(t, err, types.ErrUnavailable)
	})
}

func TestBuildPromptSkipsSystemMessages(t *testing.T) {
	history := []types.ConversationMessage{
		{Role: types.RoleSystem, Content: "hidden"},
		{Role: types.RoleUser, Content: "beach"},
		{Role: types.RoleAssistant, Content: "{}"},
	}
	got := buildPrompt(history, "add gulls")
	assert.NotContains(t, got, "hidden")
	assert.True(t, strings.HasSuffix(got, "user: add gulls"))
	assert.Equal(t, "user: first", buildPrompt(nil, "first"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
