package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sbsconv/internal/config"
	"sbsconv/internal/events"
)

const userAgent = "sbsconv/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyShotPromoted(ctx context.Context, shotName, destination string) error
	NotifyRunCompleted(ctx context.Context, summary events.Summary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyShotPromoted(ctx context.Context, shotName, destination string) error {
	shotName = strings.TrimSpace(shotName)
	message := fmt.Sprintf("Ready for comp: %s", shotName)
	if destination = strings.TrimSpace(destination); destination != "" {
		message = fmt.Sprintf("%s\nFolder: %s", message, destination)
	}
	data := payload{
		title:   "sbsconv - Shot Promoted",
		message: message,
		tags:    []string{"sbsconv", "promotion", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary events.Summary) error {
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	switch {
	case summary.Canceled:
		title = "sbsconv - Run Canceled"
		message = fmt.Sprintf("Conversion canceled: %d converted, %d failed, %d not started in %s",
			summary.Done, summary.Failed, summary.Skipped, durationText)
	case summary.Failed > 0:
		title = "sbsconv - Run Complete (with errors)"
		message = fmt.Sprintf("Conversion complete: %d converted, %d failed in %s", summary.Done, summary.Failed, durationText)
	default:
		title = "sbsconv - Run Complete"
		message = fmt.Sprintf("Conversion complete: %d frames converted in %s", summary.Done, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"sbsconv", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "sbsconv - Error",
		message:  builder.String(),
		tags:     []string{"sbsconv", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "sbsconv - Test",
		message:  "Notification system test",
		tags:     []string{"sbsconv", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyShotPromoted(context.Context, string, string) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, events.Summary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
