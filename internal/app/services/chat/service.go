// Package chat provides the chat streams: the shared group stream and
// per-agency streams. Sends are optimistic; the authoritative row from
// the platform reconciles the local view.
package chat

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/groupdesk/groupdesk/internal/app/domain/channel"
	"github.com/groupdesk/groupdesk/internal/app/storage"
	"github.com/groupdesk/groupdesk/internal/cache"
	"github.com/groupdesk/groupdesk/internal/platform/supabase"
	"github.com/groupdesk/groupdesk/pkg/logger"
)

const (
	groupChannelName = "general"
	nameCacheTTL     = 10 * time.Minute
)

// Feed delivers authoritative message inserts for a channel. Subscribe
// returns a function that cancels the subscription.
type Feed interface {
	SubscribeMessages(ctx context.Context, channelID string, handler func(channel.Message)) (func() error, error)
}

// Uploader stores attachment bytes and returns a URL for embedding.
type Uploader interface {
	UploadAttachment(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Service resolves channels and produces live streams.
type Service struct {
	channels storage.ChannelStore
	profiles storage.ProfileStore
	names    cache.Cache
	feed     Feed
	uploads  Uploader
	log      *logger.Logger
}

// New creates the chat service. feed and uploads may be nil; streams then
// run without live updates, and attachments are rejected.
func New(channels storage.ChannelStore, profiles storage.ProfileStore, names cache.Cache, feed Feed, uploads Uploader, log *logger.Logger) *Service {
	if names == nil {
		names = cache.NewMemory()
	}
	if log == nil {
		log = logger.NewDefault("chat")
	}
	return &Service{
		channels: channels,
		profiles: profiles,
		names:    names,
		feed:     feed,
		uploads:  uploads,
		log:      log,
	}
}

// Resolve finds the channel for a kind, creating it on first use. The
// group stream is a singleton; agency streams are one per agency.
func (s *Service) Resolve(ctx context.Context, kind channel.Kind, agencyID string) (channel.Channel, error) {
	if kind == channel.KindAgency && agencyID == "" {
		return channel.Channel{}, errors.New("agency stream requires an agency")
	}
	if kind == channel.KindGroup {
		agencyID = ""
	}

	ch, err := s.channels.FindChannel(ctx, kind, agencyID)
	if err == nil {
		return ch, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return channel.Channel{}, fmt.Errorf("find channel: %w", err)
	}

	name := groupChannelName
	if kind == channel.KindAgency {
		name = "agency-" + agencyID
	}
	ch, err = s.channels.CreateChannel(ctx, channel.Channel{
		Name:     name,
		Kind:     kind,
		AgencyID: agencyID,
	})
	if err != nil {
		return channel.Channel{}, fmt.Errorf("create channel: %w", err)
	}
	s.log.WithField("channel", ch.ID).Info("channel created")
	return ch, nil
}

// History returns a channel's messages oldest first with sender names
// resolved.
func (s *Service) History(ctx context.Context, kind channel.Kind, agencyID string) ([]channel.Message, error) {
	ch, err := s.Resolve(ctx, kind, agencyID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.channels.ListMessages(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for i := range msgs {
		msgs[i].SenderName = s.resolveName(ctx, msgs[i].SenderID)
	}
	return msgs, nil
}

// Post persists a message directly, without a stream. Used by callers
// that do not hold a live view.
func (s *Service) Post(ctx context.Context, kind channel.Kind, agencyID, senderID, content, attachmentURL string) (channel.Message, error) {
	if content == "" && attachmentURL == "" {
		return channel.Message{}, errors.New("empty message")
	}
	ch, err := s.Resolve(ctx, kind, agencyID)
	if err != nil {
		return channel.Message{}, err
	}
	msg, err := s.channels.CreateMessage(ctx, channel.Message{
		ChannelID:     ch.ID,
		SenderID:      senderID,
		Content:       content,
		AttachmentURL: attachmentURL,
	})
	if err != nil {
		return channel.Message{}, fmt.Errorf("create message: %w", err)
	}
	msg.SenderName = s.resolveName(ctx, senderID)
	return msg, nil
}

// UploadAttachment stores attachment bytes and returns the URL to embed
// in a message.
func (s *Service) UploadAttachment(ctx context.Context, senderID, filename string, data []byte, contentType string) (string, error) {
	if s.uploads == nil {
		return "", errors.New("attachments unavailable")
	}
	key := fmt.Sprintf("chat/%s/%s-%s", senderID, uuid.NewString(), path.Base(filename))
	url, err := s.uploads.UploadAttachment(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	return url, nil
}

// resolveName maps a sender ID to a display name through the cache. An
// unknown sender yields an empty name rather than an error.
func (s *Service) resolveName(ctx context.Context, senderID string) string {
	if senderID == "" {
		return ""
	}
	if name, err := s.names.Get(ctx, "name:"+senderID); err == nil {
		return name
	}
	p, err := s.profiles.GetProfile(ctx, senderID)
	if err != nil {
		return ""
	}
	s.names.Set(ctx, "name:"+senderID, p.FullName, nameCacheTTL)
	return p.FullName
}

// StorageUploader adapts the platform object store to the Uploader
// interface.
type StorageUploader struct {
	storage *supabase.StorageClient
	bucket  string
}

var _ Uploader = (*StorageUploader)(nil)

// NewStorageUploader uploads into the given bucket.
func NewStorageUploader(storage *supabase.StorageClient, bucket string) *StorageUploader {
	return &StorageUploader{storage: storage, bucket: bucket}
}

func (u *StorageUploader) UploadAttachment(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	opts := &supabase.UploadOptions{ContentType: contentType}
	if err := u.storage.Upload(ctx, u.bucket, key, data, opts); err != nil {
		return "", err
	}
	return u.storage.GetPublicURL(u.bucket, key), nil
}
