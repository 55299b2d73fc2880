// Package agencies manages the organizational units.
package agencies

import (
	"context"
	"errors"
	"fmt"

	"github.com/groupdesk/groupdesk/internal/app/domain/agency"
	"github.com/groupdesk/groupdesk/internal/app/domain/profile"
	"github.com/groupdesk/groupdesk/internal/app/storage"
	"github.com/groupdesk/groupdesk/pkg/logger"
)

// ErrForbidden is returned when a non-core member creates an agency.
var ErrForbidden = errors.New("core role required")

// Service exposes agency operations.
type Service struct {
	agencies storage.AgencyStore
	log      *logger.Logger
}

// New creates the agencies service.
func New(agencies storage.AgencyStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("agencies")
	}
	return &Service{agencies: agencies, log: log}
}

// List returns every agency ordered by name. Listing is open to all
// members so sign-up can offer the choices.
func (s *Service) List(ctx context.Context) ([]agency.Agency, error) {
	return s.agencies.ListAgencies(ctx)
}

// Get returns one agency.
func (s *Service) Get(ctx context.Context, id string) (agency.Agency, error) {
	return s.agencies.GetAgency(ctx, id)
}

// Create adds an agency. Core only.
func (s *Service) Create(ctx context.Context, actor profile.Profile, name string) (agency.Agency, error) {
	if actor.Role != profile.RoleCore {
		return agency.Agency{}, ErrForbidden
	}
	if name == "" {
		return agency.Agency{}, errors.New("name required")
	}
	a, err := s.agencies.CreateAgency(ctx, agency.Agency{Name: name})
	if err != nil {
		return agency.Agency{}, fmt.Errorf("create agency: %w", err)
	}
	s.log.WithField("agency", a.ID).Info("agency created")
	return a, nil
}
