package handler

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/internal/domain/chatsessions"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
)

type stubService struct {
	chatsessions.Service
	sendErr  error
	lastSent string
	promptID *uuid.UUID
}

func (s *stubService) CreateSession(_ context.Context, userID uuid.UUID, title string, promptID *uuid.UUID) (*types.ChatSession, error) {
	s.promptID = promptID
	return &types.ChatSession{ID: uuid.New(), UserID: userID, Title: title}, nil
}

func (s *stubService) SendMessage(_ context.Context, _, sessionID uuid.UUID, content string) (*chatsessions.Reply, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.lastSent = content
	return &chatsessions.Reply{
		UserMessage:      &types.ConversationMessage{SessionID: sessionID, Role: types.RoleUser, Content: content},
		AssistantMessage: &types.ConversationMessage{SessionID: sessionID, Role: types.RoleAssistant, Content: `{"prompt":"p"}`},
		Draft:            []byte(`{"prompt":"p"}`),
	}, nil
}

func (s *stubService) DeleteSession(context.Context, uuid.UUID, uuid.UUID) error {
	return types.ErrNotFound
}

func userCtx() context.Context {
	return interceptors.WithUser(context.Background(), uuid.NewString(), "a@example.com", types.RoleMember)
}

func TestChatSessionHandlerRequiresUser(t *testing.T) {
	h := NewChatSessionHandler(&stubService{})
	_, err := h.CreateSession(context.Background(), connect.NewRequest(&v1.CreateChatSessionRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = h.SendMessage(context.Background(), connect.NewRequest(&v1.SendChatMessageRequest{SessionID: uuid.NewString()}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestChatSessionHandlerCreateWithPrompt(t *testing.T) {
	svc := &stubService{}
	h := NewChatSessionHandler(svc)
	promptID := uuid.New()
	raw := promptID.String()

	resp, err := h.CreateSession(userCtx(), connect.NewRequest(&v1.CreateChatSessionRequest{Title: "Dunes", PromptID: &raw}))
	require.NoError(t, err)
	assert.Equal(t, "Dunes", resp.Msg.Session.Title)
	require.NotNil(t, svc.promptID)
	assert.Equal(t, promptID, *svc.promptID)

	bad := "nope"
	_, err = h.CreateSession(userCtx(), connect.NewRequest(&v1.CreateChatSessionRequest{PromptID: &bad}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestChatSessionHandlerSendMessage(t *testing.T) {
	svc := &stubService{}
	h := NewChatSessionHandler(svc)
	sessionID := uuid.New()

	resp, err := h.SendMessage(userCtx(), connect.NewRequest(&v1.SendChatMessageRequest{SessionID: sessionID.String(), Message: "sunset"}))
	require.NoError(t, err)
	assert.Equal(t, "sunset", svc.lastSent)
	assert.Equal(t, sessionID, resp.Msg.AssistantMessage.SessionID)
	assert.JSONEq(t, `{"prompt":"p"}`, string(resp.Msg.Draft))
}

func TestChatSessionHandlerErrorCodes(t *testing.T) {
	h := NewChatSessionHandler(&stubService{sendErr: types.ErrUpgradeRequired})
	_, err := h.SendMessage(userCtx(), connect.NewRequest(&v1.SendChatMessageRequest{SessionID: uuid.NewString(), Message: "x"}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	h = NewChatSessionHandler(&stubService{sendErr: types.ErrUnavailable})
	_, err = h.SendMessage(userCtx(), connect.NewRequest(&v1.SendChatMessageRequest{SessionID: uuid.NewString(), Message: "x"}))
	assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))

	_, err = h.DeleteSession(userCtx(), connect.NewRequest(&v1.DeleteChatSessionRequest{SessionID: uuid.NewString()}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = h.GetSession(userCtx(), connect.NewRequest(&v1.GetChatSessionRequest{SessionID: "bad"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}
