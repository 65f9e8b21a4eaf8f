package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"packline/internal/config"
)

const userAgent = "packline/1"

// Service is the notification surface used by the station.
type Service interface {
	NotifyJobCompleted(ctx context.Context, jobName string, total int) error
	NotifyDeviceFault(ctx context.Context, device string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		station:  strings.TrimSpace(cfg.StationName),
		client:   &http.Client{Timeout: timeout},
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
	station  string
	client   *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobName string, total int) error {
	return n.send(ctx, payload{
		title:   n.title("Job complete"),
		message: fmt.Sprintf("All %d items of %s verified", total, strings.TrimSpace(jobName)),
		tags:    []string{"packline", "job", "completed"},
	})
}

func (n *ntfyService) NotifyDeviceFault(ctx context.Context, device string, err error) error {
	detail := "unknown error"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	return n.send(ctx, payload{
		title:    n.title("Device fault"),
		message:  fmt.Sprintf("%s: %s", device, detail),
		tags:     []string{"packline", "device", "warning"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    n.title("Test"),
		message:  "Notification system test",
		tags:     []string{"packline", "test"},
		priority: "low",
	})
}

func (n *ntfyService) title(event string) string {
	if n.station == "" {
		return "Packline - " + event
	}
	return fmt.Sprintf("Packline %s - %s", n.station, event)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", data.title)
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
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

func (noopService) NotifyJobCompleted(context.Context, string, int) error  { return nil }
func (noopService) NotifyDeviceFault(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                 { return nil }
