package projection

import (
	"sync"
	"time"

	"github.com/go-go-golems/pulse/pkg/events"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	MsgSendFailed = "Failed to send message, please retry."
	errorPrefix   = "**Error**: "
)

// Message is one transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	PaperIDs  []string  `json:"paper_ids,omitempty"`
	Streaming bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatState is a copy of a Chat projection.
type ChatState struct {
	Message  Message
	Progress *Progress
	Logs     []LogEntry
	Papers   []events.Paper
	Done     bool
	Errored  bool
}

// Chat projects one assistant reply. Chunks accumulate onto the single
// message this projection was created for; an error event replaces the
// content.
type Chat struct {
	mu    sync.Mutex
	id    string
	state ChatState
}

var _ Target = (*Chat)(nil)

func NewChat(messageID string) *Chat {
	c := &Chat{id: messageID}
	c.Reset()
	return c
}

func (c *Chat) MessageID() string {
	return c.id
}

func (c *Chat) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ChatState{
		Message: Message{
			ID:        c.id,
			Role:      RoleAssistant,
			Streaming: true,
			CreatedAt: time.Now(),
		},
	}
}

func (c *Chat) Snapshot() ChatState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Logs = append([]LogEntry(nil), c.state.Logs...)
	st.Papers = append([]events.Paper(nil), c.state.Papers...)
	if c.state.Progress != nil {
		p := *c.state.Progress
		st.Progress = &p
	}
	return st
}

// Finish marks the message as no longer streaming, whatever the outcome.
func (c *Chat) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Message.Streaming = false
	c.state.Progress = nil
}

func (c *Chat) HandleLog(e *events.EventLog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Logs = append(c.state.Logs, LogEntry{Level: levelOf(e), Message: e.Message})
}

// HandlePaper records papers the server attached to the reply.
func (c *Chat) HandlePaper(e *events.EventPaper) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Papers = append(c.state.Papers, e.Paper)
}

func (c *Chat) HandleTotal(*events.EventTotal) {}

func (c *Chat) HandleProgress(e *events.EventProgress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Progress = progressFrom(e)
}

func (c *Chat) HandleChunk(e *events.EventChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Progress = nil
	c.state.Message.Content += e.Content
}

func (c *Chat) HandleDone(*events.EventDone) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Done = true
	c.state.Progress = nil
	c.state.Message.Streaming = false
}

func (c *Chat) HandleError(e *events.EventError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Errored = true
	c.state.Progress = nil
	c.state.Message.Content = errorPrefix + e.Message
}

func (c *Chat) Fail(error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Errored = true
	c.state.Progress = nil
	c.state.Message.Content = MsgSendFailed
	c.state.Message.Streaming = false
}
