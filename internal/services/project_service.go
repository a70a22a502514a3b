package services

import (
	"context"
	"strings"

	"reimburse/internal/core"
	"reimburse/internal/log"
	"reimburse/internal/storage"
)

type ProjectService struct {
	store  Store
	clock  core.Clock
	logger *log.Logger
}

func NewProjectService(store Store, clock core.Clock, logger *log.Logger) *ProjectService {
	return &ProjectService{
		store:  store,
		clock:  clockOr(clock),
		logger: loggerOr(logger, log.ComponentProjects),
	}
}

// CreateProject adds an active project. Names are unique.
func (s *ProjectService) CreateProject(ctx context.Context, name, note string) (core.Project, error) {
	var p core.Project
	err := func() error {
		actor, err := core.ActorFromContext(ctx)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		p = core.Project{
			Name:      strings.TrimSpace(name),
			Note:      strings.TrimSpace(note),
			Status:    core.ProjectActive,
			CreatedBy: actor,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := p.Validate(); err != nil {
			return err
		}
		return s.store.InTx(ctx, func(q *storage.Queries) error {
			id, err := q.CreateProject(ctx, p)
			p.ID = id
			return err
		})
	}()
	finish(ctx, s.logger, log.OpCreate, err, log.NewFields())
	if err != nil {
		return core.Project{}, err
	}
	return p, nil
}

// UpdateProject replaces name, note and status. An empty status keeps the
// current one.
func (s *ProjectService) UpdateProject(ctx context.Context, p core.Project) (core.Project, error) {
	var updated core.Project
	err := func() error {
		if _, err := core.ActorFromContext(ctx); err != nil {
			return err
		}
		p.Name = strings.TrimSpace(p.Name)
		p.Note = strings.TrimSpace(p.Note)
		if err := p.Validate(); err != nil {
			return err
		}
		return s.store.InTx(ctx, func(q *storage.Queries) error {
			current, err := q.GetProject(ctx, p.ID)
			if err != nil {
				return err
			}
			if p.Status == "" {
				p.Status = current.Status
			}
			p.UpdatedAt = s.clock.Now()
			if err := q.UpdateProject(ctx, p); err != nil {
				return err
			}
			updated, err = q.GetProject(ctx, p.ID)
			return err
		})
	}()
	finish(ctx, s.logger, log.OpUpdate, err, log.NewFields())
	return updated, err
}

func (s *ProjectService) GetProject(ctx context.Context, id int64) (core.Project, error) {
	return s.store.Queries().GetProject(ctx, id)
}

// ListProjects lists projects; an empty status lists all of them.
func (s *ProjectService) ListProjects(ctx context.Context, status core.ProjectStatus) ([]core.Project, error) {
	if status != "" && !status.Valid() {
		return nil, core.ErrInvalidStatus
	}
	return s.store.Queries().ListProjects(ctx, status)
}
