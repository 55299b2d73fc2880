package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/groupdesk/groupdesk/internal/app/domain/channel"
	"github.com/groupdesk/groupdesk/internal/platform/realtime"
)

// Stream is a live view of one channel. It holds the message list, a
// draft, and the reconciliation state that keeps optimistic sends and
// feed deliveries from producing duplicates.
type Stream struct {
	svc     *Service
	channel channel.Channel
	sender  string

	mu       sync.Mutex
	messages []channel.Message
	seen     map[string]struct{}
	draft    string

	updates     chan struct{}
	unsubscribe func() error
}

// OpenStream resolves the channel, loads history, and attaches to the
// live feed when one is configured. senderID is the local user; their
// optimistic sends are attributed to it.
func (s *Service) OpenStream(ctx context.Context, kind channel.Kind, agencyID, senderID string) (*Stream, error) {
	ch, err := s.Resolve(ctx, kind, agencyID)
	if err != nil {
		return nil, err
	}

	history, err := s.channels.ListMessages(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	st := &Stream{
		svc:      s,
		channel:  ch,
		sender:   senderID,
		messages: history,
		seen:     make(map[string]struct{}, len(history)),
		updates:  make(chan struct{}, 1),
	}
	for i := range st.messages {
		st.messages[i].SenderName = s.resolveName(ctx, st.messages[i].SenderID)
		st.seen[st.messages[i].ID] = struct{}{}
	}

	if s.feed != nil {
		unsub, err := s.feed.SubscribeMessages(ctx, ch.ID, func(m channel.Message) {
			m.SenderName = s.resolveName(context.Background(), m.SenderID)
			st.receive(m)
		})
		if err != nil {
			return nil, fmt.Errorf("subscribe: %w", err)
		}
		st.unsubscribe = unsub
	}
	return st, nil
}

// Channel returns the stream's channel.
func (st *Stream) Channel() channel.Channel {
	return st.channel
}

// Messages returns a snapshot of the current message list, oldest first.
// Pending entries are included.
func (st *Stream) Messages() []channel.Message {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]channel.Message, len(st.messages))
	copy(out, st.messages)
	return out
}

// Updates signals whenever the message list changes. The channel is
// never closed and drops signals when the consumer lags.
func (st *Stream) Updates() <-chan struct{} {
	return st.updates
}

// Draft returns the current unsent draft text.
func (st *Stream) Draft() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.draft
}

// SetDraft replaces the draft text.
func (st *Stream) SetDraft(text string) {
	st.mu.Lock()
	st.draft = text
	st.mu.Unlock()
}

// Send persists the draft or the given content. The message appears in
// the local list immediately as a pending entry; the authoritative row
// replaces it when the platform confirms. On failure the pending entry is
// removed and the content is restored to the draft so nothing typed is
// lost.
func (st *Stream) Send(ctx context.Context, content, attachmentURL string) error {
	if content == "" {
		content = st.Draft()
	}
	if content == "" && attachmentURL == "" {
		return fmt.Errorf("empty message")
	}

	pending := channel.Message{
		ID:            "pending-" + uuid.NewString(),
		ChannelID:     st.channel.ID,
		SenderID:      st.sender,
		SenderName:    st.svc.resolveName(ctx, st.sender),
		Content:       content,
		AttachmentURL: attachmentURL,
		Pending:       true,
	}

	st.mu.Lock()
	st.messages = append(st.messages, pending)
	st.draft = ""
	st.mu.Unlock()
	st.notify()

	saved, err := st.svc.channels.CreateMessage(ctx, channel.Message{
		ChannelID:     st.channel.ID,
		SenderID:      st.sender,
		Content:       content,
		AttachmentURL: attachmentURL,
	})
	if err != nil {
		st.rollback(pending.ID, content)
		return fmt.Errorf("send message: %w", err)
	}

	saved.SenderName = pending.SenderName
	st.confirm(pending.ID, saved)
	return nil
}

// receive folds an authoritative row from the feed into the list. Rows
// already present, including ones confirmed through Send, are dropped.
func (st *Stream) receive(m channel.Message) {
	st.mu.Lock()
	if _, dup := st.seen[m.ID]; dup {
		st.mu.Unlock()
		return
	}
	st.seen[m.ID] = struct{}{}

	// A pending entry for the same content from the local sender means
	// the feed outran the send confirmation. The authoritative row wins.
	replaced := false
	for i := range st.messages {
		p := st.messages[i]
		if p.Pending && p.SenderID == m.SenderID && p.Content == m.Content && p.AttachmentURL == m.AttachmentURL {
			st.messages[i] = m
			replaced = true
			break
		}
	}
	if !replaced {
		// Feed frames arrive in commit order; append preserves it.
		st.messages = append(st.messages, m)
	}
	st.mu.Unlock()
	st.notify()
}

// confirm swaps a pending entry for the authoritative row. If the feed
// already delivered the row the pending entry is simply removed.
func (st *Stream) confirm(pendingID string, saved channel.Message) {
	st.mu.Lock()
	if _, dup := st.seen[saved.ID]; dup {
		st.removeLocked(pendingID)
	} else {
		st.seen[saved.ID] = struct{}{}
		swapped := false
		for i := range st.messages {
			if st.messages[i].ID == pendingID {
				st.messages[i] = saved
				swapped = true
				break
			}
		}
		if !swapped {
			st.messages = append(st.messages, saved)
		}
	}
	st.mu.Unlock()
	st.notify()
}

// rollback removes a failed pending entry and restores its content as
// the draft unless the user has typed something new.
func (st *Stream) rollback(pendingID, content string) {
	st.mu.Lock()
	st.removeLocked(pendingID)
	if st.draft == "" {
		st.draft = content
	}
	st.mu.Unlock()
	st.notify()
}

func (st *Stream) removeLocked(id string) {
	for i := range st.messages {
		if st.messages[i].ID == id {
			st.messages = append(st.messages[:i], st.messages[i+1:]...)
			return
		}
	}
}

func (st *Stream) notify() {
	select {
	case st.updates <- struct{}{}:
	default:
	}
}

// Close detaches the stream from the live feed.
func (st *Stream) Close() error {
	if st.unsubscribe != nil {
		return st.unsubscribe()
	}
	return nil
}

// RealtimeFeed adapts the platform change feed to the Feed interface.
type RealtimeFeed struct {
	client *realtime.Client
}

var _ Feed = (*RealtimeFeed)(nil)

// NewRealtimeFeed wraps a connected realtime client.
func NewRealtimeFeed(client *realtime.Client) *RealtimeFeed {
	return &RealtimeFeed{client: client}
}

func (f *RealtimeFeed) SubscribeMessages(ctx context.Context, channelID string, handler func(channel.Message)) (func() error, error) {
	ch, err := f.client.Subscribe(ctx, realtime.ChangesConfig{
		Event:  "INSERT",
		Table:  "messages",
		Filter: "channel_id=eq." + channelID,
	}, func(event realtime.Event) {
		var m channel.Message
		if err := json.Unmarshal(event.Record, &m); err != nil {
			return
		}
		if m.ChannelID != channelID {
			return
		}
		handler(m)
	})
	if err != nil {
		return nil, err
	}
	return ch.Unsubscribe, nil
}
