package service

import (
	"context"
	"fmt"
	"strings"

	"runcrew/internal/clock"
	"runcrew/internal/domain"
	"runcrew/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// GroupService mirrors group-created events from the group lifecycle owner.
// It never touches aggregates.
type GroupService struct {
	groups *repository.GroupRepository
	clock  clock.Clock
	logger zerolog.Logger
}

func NewGroupService(groups *repository.GroupRepository, clk clock.Clock, logger zerolog.Logger) *GroupService {
	return &GroupService{groups: groups, clock: clk, logger: logger}
}

// RegisterGroup records a group. An empty id gets a generated one; an
// existing id is renamed.
func (s *GroupService) RegisterGroup(ctx context.Context, id, name string) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "required"}
	}
	if id == "" {
		var err error
		if id, err = gonanoid.New(); err != nil {
			return nil, err
		}
	}

	group := &domain.Group{ID: id, Name: name, CreatedAt: s.clock.Now()}
	if err := s.groups.Upsert(ctx, nil, group); err != nil {
		s.logger.Error().Err(err).Str("group_id", id).Msg("failed to register group")
		return nil, fmt.Errorf("failed to register group: %w", err)
	}

	s.logger.Info().Str("group_id", id).Str("name", name).Msg("group registered")
	return s.groups.Get(ctx, nil, id)
}

func (s *GroupService) List(ctx context.Context) ([]domain.Group, error) {
	return s.groups.List(ctx, nil)
}
