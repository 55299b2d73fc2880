package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/groupdesk/groupdesk/internal/app/domain/channel"
	"github.com/groupdesk/groupdesk/internal/app/domain/journal"
	"github.com/groupdesk/groupdesk/internal/app/domain/ledger"
	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/domain/todo"
	"github.com/groupdesk/groupdesk/internal/app/storage"
)

func TestProfileLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	p, err := s.CreateProfile(ctx, profile.Profile{FullName: "Ana Ruiz", Email: "ana@example.com", Role: profile.RoleCore})
	if err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetProfile(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.Email != "ana@example.com" {
		t.Fatalf("unexpected email: %s", got.Email)
	}

	got.FullName = "Ana R."
	if _, err := s.UpdateProfile(ctx, got); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	if err := s.DeleteProfile(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProfile failed: %v", err)
	}
	if _, err := s.GetProfile(ctx, p.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindChannelByKind(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.FindChannel(ctx, channel.KindGroup, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before create, got %v", err)
	}

	created, err := s.CreateChannel(ctx, channel.Channel{Name: "general", Kind: channel.KindGroup})
	if err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}

	found, err := s.FindChannel(ctx, channel.KindGroup, "")
	if err != nil {
		t.Fatalf("FindChannel failed: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("found wrong channel: %s != %s", found.ID, created.ID)
	}

	if _, err := s.FindChannel(ctx, channel.KindAgency, "ag-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("agency lookup should miss, got %v", err)
	}
}

func TestMessagesOrderedAscending(t *testing.T) {
	s := New()
	ctx := context.Background()

	ch, err := s.CreateChannel(ctx, channel.Channel{Name: "general", Kind: channel.KindGroup})
	if err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}

	base := time.Now().UTC()
	for i, content := range []string{"first", "second", "third"} {
		_, err := s.CreateMessage(ctx, channel.Message{
			ChannelID: ch.ID,
			SenderID:  "u1",
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
	}

	msgs, err := s.ListMessages(ctx, ch.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[2].Content != "third" {
		t.Fatalf("messages out of order: %v", msgs)
	}
}

func TestCreateMessageUnknownChannel(t *testing.T) {
	s := New()
	_, err := s.CreateMessage(context.Background(), channel.Message{ChannelID: "missing", Content: "hi"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJournalListFiltersByAuthor(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, author := range []string{"a", "a", "b"} {
		if _, err := s.CreateJournalEntry(ctx, journal.Entry{AuthorID: author, Title: "t"}); err != nil {
			t.Fatalf("CreateJournalEntry failed: %v", err)
		}
	}

	mine, err := s.ListJournalEntries(ctx, "a")
	if err != nil {
		t.Fatalf("ListJournalEntries failed: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 entries for author a, got %d", len(mine))
	}

	all, err := s.ListJournalEntries(ctx, "")
	if err != nil {
		t.Fatalf("ListJournalEntries failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries in total, got %d", len(all))
	}
}

func TestLedgerScopeIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()

	entries := []ledger.Entry{
		{Scope: ledger.ScopeGroup, Type: ledger.TypeIncome, Amount: 1000},
		{Scope: ledger.ScopeAgency, AgencyID: "ag-1", Type: ledger.TypeExpense, Amount: 250},
		{Scope: ledger.ScopeAgency, AgencyID: "ag-2", Type: ledger.TypeIncome, Amount: 400},
	}
	for _, e := range entries {
		if _, err := s.CreateLedgerEntry(ctx, e); err != nil {
			t.Fatalf("CreateLedgerEntry failed: %v", err)
		}
	}

	group, err := s.ListLedgerEntries(ctx, ledger.ScopeGroup, "")
	if err != nil {
		t.Fatalf("ListLedgerEntries failed: %v", err)
	}
	if len(group) != 1 {
		t.Fatalf("expected 1 group entry, got %d", len(group))
	}

	ag1, err := s.ListLedgerEntries(ctx, ledger.ScopeAgency, "ag-1")
	if err != nil {
		t.Fatalf("ListLedgerEntries failed: %v", err)
	}
	if len(ag1) != 1 || ag1[0].Amount != 250 {
		t.Fatalf("unexpected agency entries: %v", ag1)
	}
}

func TestTodoFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []todo.Todo{
		{Title: "soon", AssigneeID: "u1", DueDate: now.Add(time.Hour), Status: todo.StatusPending},
		{Title: "later", AssigneeID: "u1", DueDate: now.Add(48 * time.Hour), Status: todo.StatusPending},
		{Title: "done", AssigneeID: "u2", DueDate: now.Add(time.Hour), Status: todo.StatusCompleted},
	}
	for _, td := range seed {
		if _, err := s.CreateTodo(ctx, td); err != nil {
			t.Fatalf("CreateTodo failed: %v", err)
		}
	}

	due, err := s.ListTodos(ctx, storage.TodoFilter{Status: todo.StatusPending, DueBefore: now.Add(24 * time.Hour)})
	if err != nil {
		t.Fatalf("ListTodos failed: %v", err)
	}
	if len(due) != 1 || due[0].Title != "soon" {
		t.Fatalf("unexpected due todos: %v", due)
	}

	u1, err := s.ListTodos(ctx, storage.TodoFilter{AssigneeID: "u1"})
	if err != nil {
		t.Fatalf("ListTodos failed: %v", err)
	}
	if len(u1) != 2 {
		t.Fatalf("expected 2 todos for u1, got %d", len(u1))
	}
}
