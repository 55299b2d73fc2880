package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/groupdesk/groupdesk/internal/app/domain/channel"
	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/storage"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestGetProfileNoRowsMapsToErrNotFound(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(`FROM profiles WHERE id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetProfile(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want storage.ErrNotFound, got %v", err)
	}
}

func TestFindChannelNoRowsMapsToErrNotFound(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(`FROM channels WHERE kind`).
		WithArgs("group", "").
		WillReturnError(sql.ErrNoRows)

	_, err := store.FindChannel(context.Background(), channel.KindGroup, "")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want storage.ErrNotFound, got %v", err)
	}
}

func TestUpdateProfileMissingRowMapsToErrNotFound(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec(`UPDATE profiles SET`).
		WithArgs("ghost", "Ana Ruiz", "ana@example.com", "core", nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateProfile(context.Background(), profile.Profile{
		ID:       "ghost",
		FullName: "Ana Ruiz",
		Email:    "ana@example.com",
		Role:     profile.RoleCore,
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want storage.ErrNotFound, got %v", err)
	}
}

func TestCreateMessageAssignsRowID(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(`INSERT INTO messages`).
		WithArgs("c1", "u1", "hello", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m9"))

	m, err := store.CreateMessage(context.Background(), channel.Message{
		ChannelID: "c1",
		SenderID:  "u1",
		Content:   "hello",
		Pending:   true,
	})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if m.ID != "m9" {
		t.Fatalf("want row id m9, got %q", m.ID)
	}
	if m.Pending {
		t.Fatal("stored message must not stay pending")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListMessagesScansRows(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM messages WHERE channel_id`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "channel_id", "sender_id", "content", "attachment_url", "created_at"}).
			AddRow("m1", "c1", "u1", "first", "", now).
			AddRow("m2", "c1", "u2", "second", "https://files/x.png", now.Add(time.Second)))

	msgs, err := store.ListMessages(context.Background(), "c1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("want 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[1].AttachmentURL != "https://files/x.png" {
		t.Fatalf("rows scanned wrong: %+v", msgs)
	}
}
