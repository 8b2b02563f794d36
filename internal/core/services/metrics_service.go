package services

import (
	"context"
	"sync"
	"time"

	"shopflow/internal/core/domain"
	"shopflow/internal/core/ports"
	"shopflow/pkg/window"

	"go.uber.org/zap"
)

const (
	// sparklineSamples is the trailing-window width of the occupancy
	// sparkline.
	sparklineSamples = 9
	// liveFlashDuration is how long the live indicator stays lit after a
	// push event; each new event rearms the timer.
	liveFlashDuration = 3 * time.Second
	// notificationBacklog bounds the retained notification feed.
	notificationBacklog = 50
)

// MetricsService owns the LiveMetrics / flow-series cache. All mutation
// funnels through it, each one expressed as a pure previous -> next
// transform from reconciler.go; readers get copies. Poll refreshes and push
// merges interleave freely, last completed write wins for full
// replacements.
type MetricsService struct {
	api ports.AnalyticsAPI
	log *zap.SugaredLogger

	mu            sync.RWMutex
	metrics       domain.LiveMetrics
	flow          []domain.FlowPoint
	flowRange     domain.TimeRange
	cameras       []domain.Camera
	sparkline     *window.Window[int]
	notifications []domain.Notification
	connState     domain.ConnectionState
	lastUpdate    time.Time
	isLive        bool

	liveTimer *time.Timer
	liveGen   uint64
	liveFlash time.Duration

	now func() time.Time
}

func NewMetricsService(api ports.AnalyticsAPI, log *zap.SugaredLogger) *MetricsService {
	return &MetricsService{
		api:       api,
		log:       log,
		metrics:   domain.ZeroMetrics(),
		flowRange: domain.Range24h,
		sparkline: window.New[int](sparklineSamples),
		connState: domain.InitialConnectionState(),
		liveFlash: liveFlashDuration,
		now:       time.Now,
	}
}

// HandleCameraEvent merges one push event into the aggregate and the flow
// series, appends an occupancy sample, and lights the live indicator.
func (s *MetricsService) HandleCameraEvent(ev domain.CameraEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = ApplyCameraEvent(s.metrics, ev)
	s.flow = ApplyFlowEvent(s.flow, ev)
	s.sparkline.Append(s.metrics.PeopleInStore)
	s.lastUpdate = s.now()
	s.markLiveLocked()

	if ev.Action == domain.ActionEnter || ev.Action == domain.ActionExit {
		s.pushNotificationLocked(domain.Notification{
			Severity:  domain.SeverityInfo,
			Title:     "movement",
			Message:   string(ev.PersonType) + " " + string(ev.Action),
			Timestamp: s.lastUpdate,
		})
	}
}

// ApplyMetricsUpdate replaces the cached aggregate with a pushed snapshot,
// deriving trends against the previous one.
func (s *MetricsService) ApplyMetricsUpdate(m domain.LiveMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = MergePoll(s.metrics, m)
	s.lastUpdate = s.now()
	s.markLiveLocked()
}

// AddAlert appends a backend alert to the notification feed.
func (s *MetricsService) AddAlert(severity domain.Severity, title, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pushNotificationLocked(domain.Notification{
		Severity:  severity,
		Title:     title,
		Message:   message,
		Timestamp: s.now(),
	})
}

// SetConnectionState records the transport state for readers.
func (s *MetricsService) SetConnectionState(st domain.ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connState = st
}

// Bootstrap performs the initial load from the full dashboard endpoint and
// seeds the flow series. Failures degrade to the zero-value fallbacks, so
// startup never blocks on a healthy backend.
func (s *MetricsService) Bootstrap(ctx context.Context) {
	m, err := s.api.DashboardMetrics(ctx)

	s.mu.Lock()
	if err != nil {
		s.log.Warnw("initial dashboard fetch failed, starting from zero state", "error", err)
		s.metrics = domain.ZeroMetrics()
	} else {
		s.metrics = MergePoll(s.metrics, m)
	}
	s.sparkline.Append(s.metrics.PeopleInStore)
	s.lastUpdate = s.now()
	s.mu.Unlock()

	s.RefreshFlow(ctx)
}

// RefreshMetrics fetches the realtime aggregate and the camera roster in
// parallel and merges both into the cache. A failed metrics fetch replaces
// the aggregate with the zero-value structure so the UI always has a
// render-safe value; the error is logged, never propagated.
func (s *MetricsService) RefreshMetrics(ctx context.Context) {
	type metricsResult struct {
		metrics domain.LiveMetrics
		err     error
	}
	type camerasResult struct {
		cameras []domain.Camera
		err     error
	}

	metricsCh := make(chan metricsResult, 1)
	camerasCh := make(chan camerasResult, 1)

	go func() {
		m, err := s.api.RealTimeMetrics(ctx)
		metricsCh <- metricsResult{metrics: m, err: err}
	}()
	go func() {
		c, err := s.api.CameraStatus(ctx)
		camerasCh <- camerasResult{cameras: c, err: err}
	}()

	mr := <-metricsCh
	cr := <-camerasCh

	s.mu.Lock()
	defer s.mu.Unlock()

	if mr.err != nil {
		s.log.Warnw("metrics fetch failed, falling back to zero state", "error", mr.err)
		s.metrics = domain.ZeroMetrics()
	} else {
		s.metrics = MergePoll(s.metrics, mr.metrics)
	}

	if cr.err != nil {
		s.log.Warnw("camera status fetch failed", "error", cr.err)
		s.cameras = nil
	} else {
		s.cameras = cr.cameras
	}

	if s.sparkline.Size() == 0 {
		s.sparkline.Append(s.metrics.PeopleInStore)
	}
	s.lastUpdate = s.now()
}

// RefreshFlow fetches the full flow series for the current range. On
// failure the cache is replaced with a zero-valued series spanning the same
// range.
func (s *MetricsService) RefreshFlow(ctx context.Context) {
	s.mu.RLock()
	r := s.flowRange
	s.mu.RUnlock()

	end := s.now()
	start := end.Add(-time.Duration(r.Hours()) * time.Hour)

	series, err := s.api.FlowData(ctx, start, end, string(r))
	if err != nil {
		s.log.Warnw("flow fetch failed, falling back to zero series", "range", r, "error", err)
		series = ZeroFlow(r, end)
	} else {
		series = NormalizeFlow(series)
	}

	s.mu.Lock()
	s.flow = series
	s.mu.Unlock()
}

// SetTimeRange switches the flow range; the caller refreshes afterwards.
func (s *MetricsService) SetTimeRange(r domain.TimeRange) {
	s.mu.Lock()
	s.flowRange = r
	s.mu.Unlock()
}

// Close stops the live-indicator timer.
func (s *MetricsService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveTimer != nil {
		s.liveTimer.Stop()
		s.liveTimer = nil
	}
}

// Read-side accessors. Every one returns a copy.

func (s *MetricsService) Metrics() domain.LiveMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.metrics
	if s.metrics.PeakHour != nil {
		peak := *s.metrics.PeakHour
		m.PeakHour = &peak
	}
	return m
}

func (s *MetricsService) Sparkline() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sparkline.Values()
}

func (s *MetricsService) Flow() []domain.FlowPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flow := make([]domain.FlowPoint, len(s.flow))
	copy(flow, s.flow)
	return flow
}

func (s *MetricsService) TimeRange() domain.TimeRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flowRange
}

func (s *MetricsService) Cameras() []domain.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cameras := make([]domain.Camera, len(s.cameras))
	copy(cameras, s.cameras)
	return cameras
}

func (s *MetricsService) IsLive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLive
}

func (s *MetricsService) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

func (s *MetricsService) Connection() domain.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connState
}

// Notifications returns up to limit entries, newest first.
func (s *MetricsService) Notifications(limit int) []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.notifications)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]domain.Notification, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.notifications[n-1-i]
	}
	return out
}

// markLiveLocked lights the live flag and rearms the one-shot clear timer.
// A generation counter fences out a previous timer whose callback already
// fired and is waiting on the lock: only the latest arming may clear the flag.
func (s *MetricsService) markLiveLocked() {
	s.isLive = true
	s.liveGen++
	gen := s.liveGen
	if s.liveTimer != nil {
		s.liveTimer.Stop()
	}
	s.liveTimer = time.AfterFunc(s.liveFlash, func() {
		s.mu.Lock()
		if s.liveGen == gen {
			s.isLive = false
		}
		s.mu.Unlock()
	})
}

func (s *MetricsService) pushNotificationLocked(n domain.Notification) {
	s.notifications = append(s.notifications, n)
	if len(s.notifications) > notificationBacklog {
		s.notifications = s.notifications[len(s.notifications)-notificationBacklog:]
	}
}
