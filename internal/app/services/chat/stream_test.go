package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/groupdesk/groupdesk/internal/app/domain/channel"
	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/storage"
	"github.com/groupdesk/groupdesk/internal/app/storage/memory"
)

// failingChannelStore wraps the memory store and fails message creation
// on demand.
type failingChannelStore struct {
	storage.ChannelStore
	failSend bool
}

func (f *failingChannelStore) CreateMessage(ctx context.Context, m channel.Message) (channel.Message, error) {
	if f.failSend {
		return channel.Message{}, errors.New("platform unavailable")
	}
	return f.ChannelStore.CreateMessage(ctx, m)
}

// manualFeed lets tests inject feed deliveries directly.
type manualFeed struct {
	handler func(channel.Message)
}

func (f *manualFeed) SubscribeMessages(_ context.Context, _ string, handler func(channel.Message)) (func() error, error) {
	f.handler = handler
	return func() error { return nil }, nil
}

func (f *manualFeed) deliver(m channel.Message) {
	f.handler(m)
}

func newTestService(t *testing.T, store storage.ChannelStore, profiles storage.ProfileStore, feed Feed) *Service {
	t.Helper()
	return New(store, profiles, nil, feed, nil, nil)
}

func seedSender(t *testing.T, store *memory.Store) {
	t.Helper()
	_, err := store.CreateProfile(context.Background(), profile.Profile{
		ID: "u1", FullName: "Ana Ruiz", Role: profile.RoleCore,
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func TestResolveCreatesSingletonGroupChannel(t *testing.T) {
	store := memory.New()
	svc := newTestService(t, store, store, nil)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, channel.KindGroup, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := svc.Resolve(ctx, channel.KindGroup, "ignored")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("group channel must be a singleton: %s != %s", first.ID, second.ID)
	}
}

func TestResolveAgencyChannelsAreIsolated(t *testing.T) {
	store := memory.New()
	svc := newTestService(t, store, store, nil)
	ctx := context.Background()

	a, err := svc.Resolve(ctx, channel.KindAgency, "ag-1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	b, err := svc.Resolve(ctx, channel.KindAgency, "ag-2")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if a.ID == b.ID {
		t.Fatal("agency channels must not be shared")
	}

	if _, err := svc.Resolve(ctx, channel.KindAgency, ""); err == nil {
		t.Fatal("agency stream without agency must fail")
	}
}

func TestSendAppearsImmediatelyThenConfirms(t *testing.T) {
	store := memory.New()
	seedSender(t, store)
	svc := newTestService(t, store, store, nil)

	st, err := svc.OpenStream(context.Background(), channel.KindGroup, "", "u1")
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer st.Close()

	if err := st.Send(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	msgs := st.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Pending {
		t.Fatal("message must be confirmed after successful send")
	}
	if strings.HasPrefix(msgs[0].ID, "pending-") {
		t.Fatalf("confirmed message kept the pending ID: %s", msgs[0].ID)
	}
	if msgs[0].SenderName != "Ana Ruiz" {
		t.Fatalf("sender name not resolved: %q", msgs[0].SenderName)
	}
}

func TestSendFailureRollsBackAndRestoresDraft(t *testing.T) {
	store := memory.New()
	seedSender(t, store)
	failing := &failingChannelStore{ChannelStore: store}
	svc := newTestService(t, failing, store, nil)

	st, err := svc.OpenStream(context.Background(), channel.KindGroup, "", "u1")
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer st.Close()

	failing.failSend = true
	st.SetDraft("important text")
	if err := st.Send(context.Background(), "", ""); err == nil {
		t.Fatal("expected send failure")
	}

	if len(st.Messages()) != 0 {
		t.Fatal("failed send must not leave a message behind")
	}
	if st.Draft() != "important text" {
		t.Fatalf("draft not restored: %q", st.Draft())
	}
}

func TestFeedDeliveryDeduplicatesOwnSend(t *testing.T) {
	store := memory.New()
	seedSender(t, store)
	feed := &manualFeed{}
	svc := newTestService(t, store, store, feed)

	st, err := svc.OpenStream(context.Background(), channel.KindGroup, "", "u1")
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer st.Close()

	if err := st.Send(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	sent := st.Messages()[0]

	// The platform echoes the row back over the feed.
	feed.deliver(sent)

	msgs := st.Messages()
	if len(msgs) != 1 {
		t.Fatalf("echoed row produced a duplicate: %d messages", len(msgs))
	}
}

func TestFeedDeliveryBeforeConfirmationReplacesPending(t *testing.T) {
	store := memory.New()
	seedSender(t, store)
	feed := &manualFeed{}
	svc := newTestService(t, store, store, feed)

	st, err := svc.OpenStream(context.Background(), channel.KindGroup, "", "u1")
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer st.Close()

	// Fabricate the race: a pending entry exists when the feed delivers
	// the authoritative row, before the send call returns.
	st.mu.Lock()
	st.messages = append(st.messages, channel.Message{
		ID: "pending-x", ChannelID: st.channel.ID, SenderID: "u1",
		Content: "hello", Pending: true,
	})
	st.mu.Unlock()

	authoritative := channel.Message{
		ID: "42", ChannelID: st.channel.ID, SenderID: "u1",
		Content: "hello", CreatedAt: time.Now().UTC(),
	}
	feed.deliver(authoritative)

	msgs := st.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected the pending entry to be replaced, got %d messages", len(msgs))
	}
	if msgs[0].ID != "42" || msgs[0].Pending {
		t.Fatalf("authoritative row must win: %+v", msgs[0])
	}

	// The late confirmation for the same row must not re-add it.
	st.confirm("pending-x", authoritative)
	if got := len(st.Messages()); got != 1 {
		t.Fatalf("late confirmation duplicated the row: %d messages", got)
	}
}

func TestFeedDeliveryFromOtherSenderAppends(t *testing.T) {
	store := memory.New()
	seedSender(t, store)
	feed := &manualFeed{}
	svc := newTestService(t, store, store, feed)

	st, err := svc.OpenStream(context.Background(), channel.KindGroup, "", "u1")
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer st.Close()

	feed.deliver(channel.Message{ID: "9", ChannelID: st.channel.ID, SenderID: "u2", Content: "hi"})
	feed.deliver(channel.Message{ID: "9", ChannelID: st.channel.ID, SenderID: "u2", Content: "hi"})

	if got := len(st.Messages()); got != 1 {
		t.Fatalf("replayed frame duplicated the row: %d messages", got)
	}
}

func TestHistoryResolvesSenderNames(t *testing.T) {
	store := memory.New()
	seedSender(t, store)
	svc := newTestService(t, store, store, nil)
	ctx := context.Background()

	if _, err := svc.Post(ctx, channel.KindGroup, "", "u1", "hello", ""); err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	msgs, err := svc.History(ctx, channel.KindGroup, "")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].SenderName != "Ana Ruiz" {
		t.Fatalf("unexpected history: %+v", msgs)
	}
}

func TestPostRejectsEmptyMessage(t *testing.T) {
	store := memory.New()
	svc := newTestService(t, store, store, nil)
	if _, err := svc.Post(context.Background(), channel.KindGroup, "", "u1", "", ""); err == nil {
		t.Fatal("expected error for empty message")
	}
}
