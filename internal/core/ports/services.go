package ports

import (
	"context"

	"shopflow/internal/core/domain"
)

// MetricsReader is the read-only view UI-facing handlers get over the live
// cache. Every method returns a copy; readers never observe partial merges.
type MetricsReader interface {
	Metrics() domain.LiveMetrics
	Sparkline() []int
	Flow() []domain.FlowPoint
	Cameras() []domain.Camera
	IsLive() bool
	Connection() domain.ConnectionState
	Notifications(limit int) []domain.Notification
}

// Directory serves the CRUD resources with TTL-cached reads.
type Directory interface {
	Employees(ctx context.Context) ([]domain.Employee, error)
	Employee(ctx context.Context, id string) (*domain.Employee, error)
	SaveEmployee(ctx context.Context, e *domain.Employee) (*domain.Employee, error)
	RemoveEmployee(ctx context.Context, id string) error
	Users(ctx context.Context) ([]domain.User, error)
	Cameras(ctx context.Context) ([]domain.Camera, error)
	Privacy(ctx context.Context) (*domain.PrivacySettings, error)
	UpdatePrivacy(ctx context.Context, s *domain.PrivacySettings) error
}
