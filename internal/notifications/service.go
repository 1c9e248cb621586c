package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vinflow/internal/config"
)

const userAgent = "Vinflow/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyPriorityChanged(ctx context.Context, unitName, priorityLabel string) error
	NotifyApprovalNeeded(ctx context.Context, unitName, tierLabel string, approvers []string) error
	NotifyPartsHold(ctx context.Context, unitName, partName, vendor string) error
	NotifyAging(ctx context.Context, unitName string, totalDays float64) error
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
		toggles:  cfg.Notifications,
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
	toggles  config.Notifications
}

func (n *ntfyService) NotifyPriorityChanged(ctx context.Context, unitName, priorityLabel string) error {
	if !n.toggles.Priority {
		return nil
	}
	unitName = strings.TrimSpace(unitName)
	priorityLabel = strings.TrimSpace(priorityLabel)
	data := payload{
		title:    "Vinflow - Priority",
		message:  fmt.Sprintf("Priority changed: %s is now %s", unitName, priorityLabel),
		tags:     []string{"vinflow", "priority"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyApprovalNeeded(ctx context.Context, unitName, tierLabel string, approvers []string) error {
	if !n.toggles.Approval {
		return nil
	}
	unitName = strings.TrimSpace(unitName)
	message := fmt.Sprintf("Approval needed: %s (%s)", unitName, tierLabel)
	if len(approvers) > 0 {
		message = fmt.Sprintf("%s\nApprovers: %s", message, strings.Join(approvers, ", "))
	}
	data := payload{
		title:    "Vinflow - Approval Needed",
		message:  message,
		tags:     []string{"vinflow", "approval"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPartsHold(ctx context.Context, unitName, partName, vendor string) error {
	if !n.toggles.Parts {
		return nil
	}
	unitName = strings.TrimSpace(unitName)
	partName = strings.TrimSpace(partName)
	message := fmt.Sprintf("Parts hold: %s waiting on %s", unitName, partName)
	if vendor = strings.TrimSpace(vendor); vendor != "" {
		message = fmt.Sprintf("%s (%s)", message, vendor)
	}
	data := payload{
		title:   "Vinflow - Parts Hold",
		message: message,
		tags:    []string{"vinflow", "parts"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAging(ctx context.Context, unitName string, totalDays float64) error {
	if !n.toggles.Aging {
		return nil
	}
	unitName = strings.TrimSpace(unitName)
	data := payload{
		title:    "Vinflow - Aging Unit",
		message:  fmt.Sprintf("%s has been in recon for %.1f days", unitName, totalDays),
		tags:     []string{"vinflow", "aging", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.toggles.Errors {
		return nil
	}
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
		title:    "Vinflow - Error",
		message:  builder.String(),
		tags:     []string{"vinflow", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Vinflow - Test",
		message:  "Notification system test",
		tags:     []string{"vinflow", "test"},
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

func (noopService) NotifyPriorityChanged(context.Context, string, string) error          { return nil }
func (noopService) NotifyApprovalNeeded(context.Context, string, string, []string) error { return nil }
func (noopService) NotifyPartsHold(context.Context, string, string, string) error        { return nil }
func (noopService) NotifyAging(context.Context, string, float64) error                   { return nil }
func (noopService) NotifyError(context.Context, error, string) error                     { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
