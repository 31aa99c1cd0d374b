package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-go-golems/pulse/pkg/stream"
)

type ChatSession struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type ChatMessage struct {
	ID        int64    `json:"id"`
	SessionID int64    `json:"session_id"`
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	PaperIDs  []string `json:"paper_ids"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// ChatTranscript is GET /chat/sessions/{id}.
type ChatTranscript struct {
	Session  ChatSession   `json:"session"`
	Messages []ChatMessage `json:"messages"`
}

// SendRequest is the body of the chat send stream. PaperIDs are arXiv IDs.
type SendRequest struct {
	Content  string   `json:"content"`
	PaperIDs []string `json:"paper_ids"`
	Language string   `json:"language,omitempty"`
}

// ChatService covers /api/chat/sessions.
type ChatService struct {
	c *Client
}

func sessionPath(id int64, rest string) string {
	return "/chat/sessions/" + strconv.FormatInt(id, 10) + rest
}

func (s *ChatService) List(ctx context.Context) ([]ChatSession, error) {
	var out []ChatSession
	err := s.c.doJSON(ctx, http.MethodGet, "/chat/sessions", nil, nil, &out)
	return out, err
}

func (s *ChatService) Create(ctx context.Context) (ChatSession, error) {
	var out ChatSession
	err := s.c.doJSON(ctx, http.MethodPost, "/chat/sessions", nil, nil, &out)
	return out, err
}

func (s *ChatService) Get(ctx context.Context, id int64) (ChatTranscript, error) {
	var out ChatTranscript
	err := s.c.doJSON(ctx, http.MethodGet, sessionPath(id, ""), nil, nil, &out)
	return out, err
}

func (s *ChatService) Delete(ctx context.Context, id int64) error {
	return s.c.doJSON(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil, nil)
}

func (s *ChatService) Rename(ctx context.Context, id int64, title string) (ChatSession, error) {
	var out ChatSession
	err := s.c.doJSON(ctx, http.MethodPut, sessionPath(id, "/rename"), nil, map[string]string{"title": title}, &out)
	return out, err
}

// Send is the streaming reply endpoint for one user message.
func (s *ChatService) Send(id int64, req SendRequest) (stream.Endpoint, error) {
	if req.PaperIDs == nil {
		req.PaperIDs = []string{}
	}
	return s.c.streamPostJSON(sessionPath(id, "/send"), req)
}
