package ports

import (
	"context"
	"time"

	"shopflow/internal/core/domain"
)

// AnalyticsAPI is the backend-owned analytics surface the client consumes.
// All implementations must treat non-2xx responses as failures; callers are
// responsible for substituting render-safe fallbacks.
type AnalyticsAPI interface {
	RealTimeMetrics(ctx context.Context) (domain.LiveMetrics, error)
	DashboardMetrics(ctx context.Context) (domain.LiveMetrics, error)
	FlowData(ctx context.Context, start, end time.Time, period string) ([]domain.FlowPoint, error)
	CameraStatus(ctx context.Context) ([]domain.Camera, error)
}

// DirectoryAPI covers the conventional CRUD resources.
type DirectoryAPI interface {
	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	GetEmployee(ctx context.Context, id string) (*domain.Employee, error)
	CreateEmployee(ctx context.Context, e *domain.Employee) (*domain.Employee, error)
	UpdateEmployee(ctx context.Context, e *domain.Employee) (*domain.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]domain.User, error)
	ListCameras(ctx context.Context) ([]domain.Camera, error)

	PrivacySettings(ctx context.Context) (*domain.PrivacySettings, error)
	UpdatePrivacySettings(ctx context.Context, s *domain.PrivacySettings) error
}

// EventStream delivers camera events from a server-push stream (SSE).
type EventStream interface {
	// Run blocks, invoking handler for every decoded event until ctx is
	// cancelled. Malformed payloads are dropped, never surfaced.
	Run(ctx context.Context, handler func(domain.CameraEvent)) error
}
