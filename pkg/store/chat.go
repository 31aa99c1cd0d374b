package store

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/pulse/pkg/api"
	"github.com/go-go-golems/pulse/pkg/projection"
	"github.com/go-go-golems/pulse/pkg/stream"
)

// ErrChatBusy is returned by Send while a reply is still streaming.
var ErrChatBusy = errors.New("store: a chat reply is already streaming")

// ChatStore keeps the session list and the transcript of the current session.
// At most one reply streams at a time.
type ChatStore struct {
	client *api.Client
	st     *streamer
	slot   *stream.Slot

	mu       sync.Mutex
	sessions []api.ChatSession
	current  *api.ChatSession
	messages []projection.Message
	live     *projection.Chat
	sending  bool
}

func newChatStore(client *api.Client, st *streamer) *ChatStore {
	return &ChatStore{
		client: client,
		st:     st,
		slot:   stream.NewSlot(SlotChat, stream.ReplaceReject),
	}
}

func (c *ChatStore) FetchSessions(ctx context.Context) ([]api.ChatSession, error) {
	list, err := c.client.Chat.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch chat sessions")
	}
	c.mu.Lock()
	c.sessions = list
	c.mu.Unlock()
	return append([]api.ChatSession(nil), list...), nil
}

// NewSession creates a session, makes it current and clears the transcript.
func (c *ChatStore) NewSession(ctx context.Context) (api.ChatSession, error) {
	s, err := c.client.Chat.Create(ctx)
	if err != nil {
		return api.ChatSession{}, errors.Wrap(err, "create chat session")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = append([]api.ChatSession{s}, c.sessions...)
	cur := s
	c.current = &cur
	c.messages = nil
	return s, nil
}

// SelectSession makes id current and loads its messages.
func (c *ChatStore) SelectSession(ctx context.Context, id int64) error {
	tr, err := c.client.Chat.Get(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "load chat session %d", id)
	}
	msgs := make([]projection.Message, 0, len(tr.Messages))
	for _, m := range tr.Messages {
		msgs = append(msgs, messageFromAPI(m))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := tr.Session
	if s.ID == 0 {
		s.ID = id
	}
	c.current = &s
	c.messages = msgs
	return nil
}

func (c *ChatStore) DeleteSession(ctx context.Context, id int64) error {
	if err := c.client.Chat.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete chat session %d", id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
	return nil
}

// ClearAll deletes every known session. It stops at the first failure and
// keeps the sessions that were not deleted.
func (c *ChatStore) ClearAll(ctx context.Context) error {
	for _, s := range c.Sessions() {
		if err := c.DeleteSession(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

func (c *ChatStore) removeLocked(id int64) {
	for i, s := range c.sessions {
		if s.ID == id {
			c.sessions = append(c.sessions[:i], c.sessions[i+1:]...)
			break
		}
	}
	if c.current != nil && c.current.ID == id {
		c.current = nil
		c.messages = nil
	}
}

func (c *ChatStore) Sessions() []api.ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.ChatSession(nil), c.sessions...)
}

func (c *ChatStore) Current() (api.ChatSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return api.ChatSession{}, false
	}
	return *c.current, true
}

// Messages is the transcript including the reply being streamed.
func (c *ChatStore) Messages() []projection.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]projection.Message(nil), c.messages...)
	if c.live != nil {
		out = append(out, c.live.Snapshot().Message)
	}
	return out
}

// Progress is the progress slot of the streaming reply, if any.
func (c *ChatStore) Progress() *projection.Progress {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()
	if live == nil {
		return nil
	}
	return live.Snapshot().Progress
}

func (c *ChatStore) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Cancel stops a streaming reply. The content received so far stays in the
// transcript.
func (c *ChatStore) Cancel() {
	c.slot.Cancel()
}

// Send posts content to the current session, creating one if needed, and
// streams the reply into the transcript. A blank message does nothing. When
// the reply completes the session list is refreshed once.
func (c *ChatStore) Send(ctx context.Context, content string, paperIDs []string, language string) (stream.Result, error) {
	if strings.TrimSpace(content) == "" {
		return stream.Result{}, nil
	}
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return stream.Result{}, ErrChatBusy
	}
	c.sending = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
	}()

	cur, ok := c.Current()
	if !ok {
		s, err := c.NewSession(ctx)
		if err != nil {
			return stream.Result{}, err
		}
		cur = s
	}

	ep, err := c.client.Chat.Send(cur.ID, api.SendRequest{
		Content:  content,
		PaperIDs: paperIDs,
		Language: language,
	})
	if err != nil {
		return stream.Result{}, err
	}

	live := projection.NewChat(uuid.NewString())
	c.mu.Lock()
	c.messages = append(c.messages, projection.Message{
		ID:        uuid.NewString(),
		Role:      projection.RoleUser,
		Content:   content,
		PaperIDs:  append([]string(nil), paperIDs...),
		CreatedAt: time.Now(),
	})
	c.live = live
	c.mu.Unlock()

	refreshCtx := context.WithoutCancel(ctx)
	sess := c.st.session(ep, SlotChat, stream.WithOnDone(func(stream.Result) {
		if _, err := c.FetchSessions(refreshCtx); err != nil {
			log.Warn().Err(err).Str("component", "store").Msg("refresh chat sessions after reply")
		}
	}))

	res, err := c.slot.Run(ctx, sess, live)
	if errors.Is(err, stream.ErrSlotBusy) {
		err = ErrChatBusy
	}
	live.Finish()

	c.mu.Lock()
	c.messages = append(c.messages, live.Snapshot().Message)
	if c.live == live {
		c.live = nil
	}
	c.mu.Unlock()
	return res, err
}

func messageFromAPI(m api.ChatMessage) projection.Message {
	return projection.Message{
		ID:        strconv.FormatInt(m.ID, 10),
		Role:      m.Role,
		Content:   m.Content,
		PaperIDs:  m.PaperIDs,
		CreatedAt: parseServerTime(m.CreatedAt),
	}
}

// parseServerTime reads the server's ISO timestamps, which omit the zone and
// are UTC.
func parseServerTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
