package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shopflow/internal/core/domain"
	apperrors "shopflow/pkg/errors"

	"go.uber.org/zap"
)

// SSEClient consumes the backend's server-sent camera-event stream. It is a
// secondary transport: the poller and WebSocket client stay authoritative
// for metric totals, the stream only feeds individual camera events.
type SSEClient struct {
	url        string
	httpClient *http.Client
	log        *zap.SugaredLogger

	// RetryDelay is the pause between stream re-establishments.
	RetryDelay time.Duration
}

func NewSSEClient(url string, log *zap.SugaredLogger) *SSEClient {
	return &SSEClient{
		url: url,
		httpClient: &http.Client{
			// No overall timeout: the stream is long-lived.
			Timeout: 0,
		},
		log:        log,
		RetryDelay: 5 * time.Second,
	}
}

// Run blocks consuming the stream until ctx is cancelled, re-establishing
// the connection whenever it drops.
func (s *SSEClient) Run(ctx context.Context, handler func(domain.CameraEvent)) error {
	for {
		if err := s.consume(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warnw("event stream dropped", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.RetryDelay):
		}
	}
}

func (s *SSEClient) consume(ctx context.Context, handler func(domain.CameraEvent)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return apperrors.NewTransportError("building stream request", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperrors.NewTransportError("opening event stream", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewFetchError("event stream", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	s.log.Infow("event stream connected", "url", s.url)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var p EventPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			s.log.Warnw("dropping malformed stream event", "error", err)
			continue
		}
		if p.Action != domain.ActionEnter && p.Action != domain.ActionExit {
			continue
		}

		handler(domain.CameraEvent{
			PersonType: p.PersonType,
			Action:     p.Action,
			CameraID:   p.CameraID,
			Timestamp:  time.Now(),
		})
	}

	if err := scanner.Err(); err != nil {
		return apperrors.NewTransportError("reading event stream", err)
	}
	return nil
}
