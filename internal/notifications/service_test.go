package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"vinflow/internal/config"
	"vinflow/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPriorityChanged(context.Background(), "2022 Honda Civic", "SOLD - Rush"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "priority changed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyPriorityChanged(context.Background(), "2022 Honda Civic", "SOLD - Rush")
			},
			expectTitle:    "Vinflow - Priority",
			expectMessage:  "Priority changed: 2022 Honda Civic is now SOLD - Rush",
			expectTags:     "vinflow,priority",
			expectPriority: "high",
		},
		{
			name: "approval needed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyApprovalNeeded(context.Background(), "2019 Ford F-150", "$1,500-$1,700", []string{"Micah Molin", "Eric VanDyke"})
			},
			expectTitle:    "Vinflow - Approval Needed",
			expectMessage:  "Approval needed: 2019 Ford F-150 ($1,500-$1,700)\nApprovers: Micah Molin, Eric VanDyke",
			expectTags:     "vinflow,approval",
			expectPriority: "high",
		},
		{
			name: "parts hold",
			notify: func(svc notifications.Service) error {
				return svc.NotifyPartsHold(context.Background(), "2021 Toyota RAV4", "windshield", "Body Shop")
			},
			expectTitle:   "Vinflow - Parts Hold",
			expectMessage: "Parts hold: 2021 Toyota RAV4 waiting on windshield (Body Shop)",
			expectTags:    "vinflow,parts",
		},
		{
			name: "aging",
			notify: func(svc notifications.Service) error {
				return svc.NotifyAging(context.Background(), "2020 Chevy Malibu", 7.5)
			},
			expectTitle:    "Vinflow - Aging Unit",
			expectMessage:  "2020 Chevy Malibu has been in recon for 7.5 days",
			expectTags:     "vinflow,aging,alert",
			expectPriority: "high",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("commit failed"), "transition")
			},
			expectTitle:    "Vinflow - Error",
			expectMessage:  "Error with transition: commit failed",
			expectTags:     "vinflow,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Priority = false
	cfg.Notifications.Approval = false
	cfg.Notifications.Parts = false
	cfg.Notifications.Aging = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyPriorityChanged(ctx, "unit", "label"); err != nil {
		t.Fatalf("disabled priority event returned error: %v", err)
	}
	if err := svc.NotifyApprovalNeeded(ctx, "unit", "tier", nil); err != nil {
		t.Fatalf("disabled approval event returned error: %v", err)
	}
	if err := svc.NotifyPartsHold(ctx, "unit", "part", ""); err != nil {
		t.Fatalf("disabled parts event returned error: %v", err)
	}
	if err := svc.NotifyAging(ctx, "unit", 9.5); err != nil {
		t.Fatalf("disabled aging event returned error: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("x"), "y"); err != nil {
		t.Fatalf("disabled error event returned error: %v", err)
	}
}

func TestNtfyServiceSurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyAging(context.Background(), "unit", 6); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
