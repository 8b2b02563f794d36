package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shopflow/internal/core/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMetrics struct {
	metrics domain.LiveMetrics
	live    bool
}

func (s *stubMetrics) Metrics() domain.LiveMetrics         { return s.metrics }
func (s *stubMetrics) Sparkline() []int                    { return []int{1, 2, 3} }
func (s *stubMetrics) Flow() []domain.FlowPoint            { return nil }
func (s *stubMetrics) Cameras() []domain.Camera            { return nil }
func (s *stubMetrics) IsLive() bool                        { return s.live }
func (s *stubMetrics) Connection() domain.ConnectionState  { return domain.InitialConnectionState() }
func (s *stubMetrics) Notifications(int) []domain.Notification {
	return []domain.Notification{{Severity: domain.SeverityInfo, Title: "hello"}}
}

type stubDirectory struct {
	employees []domain.Employee
	saved     *domain.Employee
}

func (s *stubDirectory) Employees(context.Context) ([]domain.Employee, error) {
	return s.employees, nil
}

func (s *stubDirectory) Employee(_ context.Context, id string) (*domain.Employee, error) {
	for i := range s.employees {
		if s.employees[i].ID == id {
			return &s.employees[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubDirectory) SaveEmployee(_ context.Context, e *domain.Employee) (*domain.Employee, error) {
	if e.ID == "" {
		e.ID = "e-new"
	}
	s.saved = e
	return e, nil
}

func (s *stubDirectory) RemoveEmployee(context.Context, string) error { return nil }
func (s *stubDirectory) Users(context.Context) ([]domain.User, error) { return nil, nil }
func (s *stubDirectory) Cameras(context.Context) ([]domain.Camera, error) {
	return nil, nil
}
func (s *stubDirectory) Privacy(context.Context) (*domain.PrivacySettings, error) {
	return &domain.PrivacySettings{BlurFaces: true, RetentionDays: 30}, nil
}
func (s *stubDirectory) UpdatePrivacy(context.Context, *domain.PrivacySettings) error {
	return nil
}

func newTestRouter(metrics *stubMetrics, dir *stubDirectory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewDashboardHandler(metrics, dir).SetupRoutes(router)
	return router
}

func TestGetSnapshot(t *testing.T) {
	metrics := &stubMetrics{
		metrics: domain.LiveMetrics{PeopleInStore: 14, Trends: domain.NeutralTrends()},
		live:    true,
	}
	router := newTestRouter(metrics, &stubDirectory{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/snapshot", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Metrics   domain.LiveMetrics `json:"metrics"`
		Sparkline []int              `json:"sparkline"`
		IsLive    bool               `json:"is_live"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 14, body.Metrics.PeopleInStore)
	assert.Equal(t, []int{1, 2, 3}, body.Sparkline)
	assert.True(t, body.IsLive)
}

func TestGetNotificationsRejectsBadLimit(t *testing.T) {
	router := newTestRouter(&stubMetrics{}, &stubDirectory{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/notifications?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateEmployeeValidation(t *testing.T) {
	dir := &stubDirectory{}
	router := newTestRouter(&stubMetrics{}, dir)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/employees",
		strings.NewReader(`{"name": "A"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, dir.saved)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/employees",
		strings.NewReader(`{"name": "Ana Lima", "email": "ana@example.com", "role": "manager"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, dir.saved)
	assert.Equal(t, "e-new", dir.saved.ID)
	assert.True(t, dir.saved.Active)
}

func TestGetEmployeeByID(t *testing.T) {
	dir := &stubDirectory{employees: []domain.Employee{{ID: "e-1", Name: "Bruno"}}}
	router := newTestRouter(&stubMetrics{}, dir)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/employees/e-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var e domain.Employee
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "Bruno", e.Name)
}
