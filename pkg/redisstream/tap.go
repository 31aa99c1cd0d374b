package redisstream

import (
	"context"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"

	"github.com/go-go-golems/pulse/pkg/events"
	"github.com/go-go-golems/pulse/pkg/stream"
)

// Metadata keys carried on every published message.
const (
	MetaSessionID = "session_id"
	MetaSlot      = "slot"
	MetaKind      = "kind"
	MetaSeq       = "seq"
	MetaLifecycle = "lifecycle"
)

// Lifecycle markers published around a session's events.
const (
	LifecycleStarted = "started"
	LifecycleEnded   = "ended"
)

// PublisherTap publishes each observed event on TopicForSlot(slot).
type PublisherTap struct {
	pub message.Publisher
}

var _ stream.Tap = (*PublisherTap)(nil)

func NewPublisherTap(pub message.Publisher) *PublisherTap {
	return &PublisherTap{pub: pub}
}

func (t *PublisherTap) SessionStarted(_ context.Context, info stream.SessionInfo) error {
	msg := message.NewMessage(watermill.NewUUID(), nil)
	setSessionMeta(msg, info)
	msg.Metadata.Set(MetaLifecycle, LifecycleStarted)
	return t.publish(info.Slot, msg)
}

func (t *PublisherTap) EventObserved(_ context.Context, obs stream.Observation) error {
	if obs.Event == nil {
		return nil
	}
	msg := message.NewMessage(watermill.NewUUID(), obs.Event.Raw())
	setSessionMeta(msg, obs.Session)
	msg.Metadata.Set(MetaKind, string(obs.Event.Kind()))
	msg.Metadata.Set(MetaSeq, strconv.FormatUint(obs.Seq, 10))
	return t.publish(obs.Session.Slot, msg)
}

func (t *PublisherTap) SessionEnded(_ context.Context, info stream.SessionInfo, res stream.Result, runErr error) error {
	msg := message.NewMessage(watermill.NewUUID(), nil)
	setSessionMeta(msg, info)
	msg.Metadata.Set(MetaLifecycle, LifecycleEnded)
	msg.Metadata.Set("events", strconv.Itoa(res.Events))
	msg.Metadata.Set("done", strconv.FormatBool(res.Done))
	msg.Metadata.Set("cancelled", strconv.FormatBool(res.Cancelled))
	if runErr != nil {
		msg.Metadata.Set("error", runErr.Error())
	}
	return t.publish(info.Slot, msg)
}

func (t *PublisherTap) publish(slot string, msg *message.Message) error {
	if err := t.pub.Publish(TopicForSlot(slot), msg); err != nil {
		return errors.Wrap(err, "publish stream event")
	}
	return nil
}

func setSessionMeta(msg *message.Message, info stream.SessionInfo) {
	msg.Metadata.Set(MetaSessionID, info.ID)
	msg.Metadata.Set(MetaSlot, info.Slot)
}

// Envelope is a decoded bus message.
type Envelope struct {
	SessionID string
	Slot      string
	Seq       uint64
	Lifecycle string
	Event     events.Event
	Metadata  map[string]string
}

// DecodeMessage turns a bus message back into an Envelope. Lifecycle messages
// have a nil Event.
func DecodeMessage(msg *message.Message) (Envelope, error) {
	env := Envelope{
		SessionID: msg.Metadata.Get(MetaSessionID),
		Slot:      msg.Metadata.Get(MetaSlot),
		Lifecycle: msg.Metadata.Get(MetaLifecycle),
		Metadata:  map[string]string(msg.Metadata),
	}
	if env.Lifecycle != "" {
		return env, nil
	}
	if s := msg.Metadata.Get(MetaSeq); s != "" {
		seq, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return env, errors.Wrapf(err, "bad seq %q", s)
		}
		env.Seq = seq
	}
	ev, err := events.NewEventFromJSON(msg.Payload)
	if err != nil {
		return env, errors.Wrap(err, "decode event payload")
	}
	env.Event = ev
	return env, nil
}
