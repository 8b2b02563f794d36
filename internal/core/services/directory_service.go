package services

import (
	"context"

	"shopflow/internal/core/domain"
	"shopflow/internal/core/ports"
	"shopflow/pkg/cache"

	"go.uber.org/zap"
)

// Cache key prefixes, one family per resource so writes can invalidate the
// whole family at once.
const (
	keyEmployees = "employees:"
	keyUsers     = "users:"
	keyCameras   = "cameras:"
	keyPrivacy   = "privacy:settings"
)

// DirectoryService serves the conventional CRUD resources with read-through
// TTL caching. The backend owns every entity lifecycle; a write here goes
// straight through and invalidates the affected cache family.
type DirectoryService struct {
	api   ports.DirectoryAPI
	cache *cache.Cache
	log   *zap.SugaredLogger
}

func NewDirectoryService(api ports.DirectoryAPI, c *cache.Cache, log *zap.SugaredLogger) *DirectoryService {
	return &DirectoryService{api: api, cache: c, log: log}
}

func (s *DirectoryService) Employees(ctx context.Context) ([]domain.Employee, error) {
	if v, ok := s.cache.Get(keyEmployees + "list"); ok {
		return v.([]domain.Employee), nil
	}

	list, err := s.api.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(keyEmployees+"list", list)
	return list, nil
}

func (s *DirectoryService) Employee(ctx context.Context, id string) (*domain.Employee, error) {
	if v, ok := s.cache.Get(keyEmployees + id); ok {
		e := v.(domain.Employee)
		return &e, nil
	}

	e, err := s.api.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(keyEmployees+id, *e)
	return e, nil
}

// SaveEmployee creates when the id is empty, updates otherwise. Either way
// the employees cache family is invalidated.
func (s *DirectoryService) SaveEmployee(ctx context.Context, e *domain.Employee) (*domain.Employee, error) {
	var (
		saved *domain.Employee
		err   error
	)
	if e.ID == "" {
		saved, err = s.api.CreateEmployee(ctx, e)
	} else {
		saved, err = s.api.UpdateEmployee(ctx, e)
	}
	if err != nil {
		return nil, err
	}

	s.cache.DeletePrefix(keyEmployees)
	return saved, nil
}

func (s *DirectoryService) RemoveEmployee(ctx context.Context, id string) error {
	if err := s.api.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	s.cache.DeletePrefix(keyEmployees)
	return nil
}

func (s *DirectoryService) Users(ctx context.Context) ([]domain.User, error) {
	if v, ok := s.cache.Get(keyUsers + "list"); ok {
		return v.([]domain.User), nil
	}

	list, err := s.api.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(keyUsers+"list", list)
	return list, nil
}

func (s *DirectoryService) Cameras(ctx context.Context) ([]domain.Camera, error) {
	if v, ok := s.cache.Get(keyCameras + "list"); ok {
		return v.([]domain.Camera), nil
	}

	list, err := s.api.ListCameras(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(keyCameras+"list", list)
	return list, nil
}

func (s *DirectoryService) Privacy(ctx context.Context) (*domain.PrivacySettings, error) {
	if v, ok := s.cache.Get(keyPrivacy); ok {
		p := v.(domain.PrivacySettings)
		return &p, nil
	}

	p, err := s.api.PrivacySettings(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(keyPrivacy, *p)
	return p, nil
}

func (s *DirectoryService) UpdatePrivacy(ctx context.Context, p *domain.PrivacySettings) error {
	if err := s.api.UpdatePrivacySettings(ctx, p); err != nil {
		return err
	}
	s.cache.Delete(keyPrivacy)
	return nil
}

// RowChangeInvalidator returns the callback wired to the employees
// row-change channel: any insert/update/delete pushed by the backend drops
// the local employees cache so the next read refetches.
func (s *DirectoryService) RowChangeInvalidator() func(event string) {
	return func(event string) {
		s.log.Debugw("row change received, invalidating employees cache", "event", event)
		s.cache.DeletePrefix(keyEmployees)
	}
}
