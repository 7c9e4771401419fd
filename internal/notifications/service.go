package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reddittrack/internal/config"
)

const userAgent = "reddittrack/1.0"

// Event names a notification the tracker can emit.
type Event string

const (
	EventRunCompleted     Event = "run_completed"
	EventHighPriorityPost Event = "high_priority_post"
	EventRunFailed        Event = "run_failed"
	EventTest             Event = "test"
)

// Payload carries event fields by name.
type Payload map[string]any

// Service publishes tracker events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service when a topic is configured and a
// no-op service otherwise. Event kinds switched off in config are dropped.
func NewService(cfg *config.Config) Service {
	return NewServiceWithClient(cfg, nil)
}

// NewServiceWithClient is NewService with an explicit HTTP client.
func NewServiceWithClient(cfg *config.Config, client *http.Client) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	if client == nil {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &ntfyService{
		endpoint: topicURL(topic),
		client:   client,
		enabled: map[Event]bool{
			EventRunCompleted:     cfg.Notifications.RunSummary,
			EventHighPriorityPost: cfg.Notifications.HighPriority,
			EventRunFailed:        cfg.Notifications.Errors,
			EventTest:             true,
		},
	}
}

// topicURL accepts either a full URL or a bare ntfy.sh topic name.
func topicURL(topic string) string {
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return topic
	}
	return "https://ntfy.sh/" + strings.TrimPrefix(topic, "/")
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunCompleted:
		newPosts := payload.number("new")
		high := payload.number("high_priority")
		body := fmt.Sprintf("%d new posts (%d high priority, %d negative) from %d fetched",
			newPosts, high, payload.number("negative"), payload.number("fetched"))
		if report := payload.text("report_path"); report != "" {
			body += "\nReport: " + report
		}
		msg := message{
			title: "reddittrack - Run Complete",
			body:  body,
			tags:  []string{"reddittrack", "run", "completed"},
		}
		if newPosts == 0 {
			msg.priority = "low"
		}
		return msg, true
	case EventHighPriorityPost:
		title := payload.text("title")
		if title == "" {
			title = "(untitled)"
		}
		body := fmt.Sprintf("r/%s: %s", payload.text("community"), title)
		if sentiment := payload.text("sentiment"); sentiment != "" {
			body += fmt.Sprintf("\nSentiment: %s", sentiment)
		}
		return message{
			title:    "reddittrack - High Priority Post",
			body:     body,
			tags:     []string{"reddittrack", "priority", "warning"},
			priority: "high",
			click:    payload.text("url"),
		}, true
	case EventRunFailed:
		var b strings.Builder
		b.WriteString("Run failed")
		if stage := payload.text("context"); stage != "" {
			b.WriteString(" during ")
			b.WriteString(stage)
		}
		b.WriteString(": ")
		if errText := payload.text("error"); errText != "" {
			b.WriteString(errText)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "reddittrack - Error",
			body:     b.String(),
			tags:     []string{"reddittrack", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "reddittrack - Test",
			body:     "Notification system test",
			tags:     []string{"reddittrack", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}
	if msg.click != "" {
		req.Header.Set("Click", msg.click)
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

func (p Payload) text(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) number(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
