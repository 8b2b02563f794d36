package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shopflow/internal/core/domain"
	"shopflow/internal/infrastructure/realtime"
	"shopflow/pkg/logger"
)

// tail connects to the metrics WebSocket and prints every decoded update.
// Useful for checking what the backend is actually pushing.
func main() {
	url := flag.String("url", "ws://localhost:3000/ws/metrics", "metrics WebSocket URL")
	level := flag.String("level", "warn", "log level")
	flag.Parse()

	zapLogger := logger.New(*level, "console")
	defer zapLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := realtime.NewWSClient(realtime.DefaultConfig(*url), realtime.Handlers{
		OnMetrics: func(m domain.LiveMetrics) {
			fmt.Printf("metrics  people=%d conversion=%.1f%% employees=%d total=%d\n",
				m.PeopleInStore, m.ConversionRate, m.ActiveEmployees, m.TotalToday)
		},
		OnAlert: func(n domain.Notification) {
			fmt.Printf("alert    [%s] %s: %s\n", n.Severity, n.Title, n.Message)
		},
		OnEvent: func(ev domain.CameraEvent) {
			fmt.Printf("event    %s %s camera=%s\n", ev.PersonType, ev.Action, ev.CameraID)
		},
		OnState: func(st domain.ConnectionState) {
			fmt.Printf("state    %s attempts=%d\n", st.Status, st.ReconnectAttempts)
		},
	}, nil, logger.Named(zapLogger, "tail"))

	if err := client.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "initial connect failed: %v (reconnecting)\n", err)
	}
	defer client.Disconnect()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}
