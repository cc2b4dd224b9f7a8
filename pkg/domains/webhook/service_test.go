package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wagate/pkg/dtos"
	"github.com/wagate/pkg/entities"
	"github.com/wagate/pkg/events"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestSign_MatchesHMACAndRejectsTampering(t *testing.T) {
	body := []byte(`{"event":"ready","sessionId":"alpha"}`)
	mac := hmac.New(sha256.New, []byte("s"))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	if got := Sign("s", body); got != want {
		t.Fatalf("Sign = %s, want %s", got, want)
	}
	if !Verify("s", body, want) {
		t.Fatal("valid signature rejected")
	}
	tampered := []byte(`{"event":"ready","sessionId":"bravo"}`)
	if Verify("s", tampered, want) {
		t.Fatal("tampered payload verified")
	}
	if Verify("other", body, want) {
		t.Fatal("wrong secret verified")
	}
	if Verify("s", body, "not-hex") {
		t.Fatal("malformed signature verified")
	}
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	cases := []struct {
		kind string
		want []time.Duration
	}{
		{entities.RetryPolicyExponential, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}},
		{entities.RetryPolicyLinear, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second}},
		{entities.RetryPolicyConstant, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second}},
	}
	for _, tc := range cases {
		p := RetryPolicy{Kind: tc.kind, Attempts: 4, Delay: 2 * time.Second}
		for i, want := range tc.want {
			if got := p.NextDelay(i); got != want {
				t.Fatalf("%s retry %d: delay %s, want %s", tc.kind, i, got, want)
			}
		}
		if p.TotalAttempts() != 5 {
			t.Fatalf("%s: total attempts = %d", tc.kind, p.TotalAttempts())
		}
	}

	capped := RetryPolicy{Kind: entities.RetryPolicyExponential, Delay: time.Minute}
	if got := capped.NextDelay(20); got != maxBackoff {
		t.Fatalf("uncapped backoff %s", got)
	}
	if (RetryPolicy{Attempts: -1}).TotalAttempts() != 1 {
		t.Fatal("negative attempts should still try once")
	}
}

func TestService_CreateAppliesDefaultsAndNormalizes(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, 15*time.Second)

	hook, err := svc.Create(context.Background(), "alpha", dtos.WebhookCreateDTO{
		URL:    "https://example.test/hook",
		Events: []string{"message.received", "READY", "message.received"},
		Secret: "s",
	})
	if err != nil {
		t.Fatal(err)
	}
	if hook.ID == "" || hook.SessionID != "alpha" || !hook.Active {
		t.Fatalf("hook = %+v", hook)
	}
	if hook.RetryAttempts != 3 || hook.RetryDelaySeconds != 5 || hook.RetryPolicy != entities.RetryPolicyExponential || hook.TimeoutSeconds != 15 {
		t.Fatalf("defaults not applied: %+v", hook)
	}
	if len(hook.Events) != 2 || hook.Events[0] != "MESSAGE_RECEIVED" || hook.Events[1] != "READY" {
		t.Fatalf("events = %v", hook.Events)
	}

	dto := ToDTO(hook)
	if dto.Events[0] != "message.received" || !dto.HasSecret {
		t.Fatalf("dto = %+v", dto)
	}
}

func TestService_CreateExpandsWildcard(t *testing.T) {
	svc := NewService(newMemRepo(), nil, 0)
	hook, err := svc.Create(context.Background(), "alpha", dtos.WebhookCreateDTO{URL: "http://x.test", Events: []string{"*"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(hook.Events) != len(events.All()) {
		t.Fatalf("wildcard expanded to %v", hook.Events)
	}
	for _, e := range hook.Events {
		if e == "*" || e == "ALL" {
			t.Fatal("wildcard stored literally")
		}
	}
	if hook.TimeoutSeconds != DefaultTimeoutSeconds {
		t.Fatalf("timeout = %d", hook.TimeoutSeconds)
	}
}

func TestService_CreateRejectsBadInput(t *testing.T) {
	svc := NewService(newMemRepo(), nil, 0)
	ctx := context.Background()

	var unknown *events.UnknownEventError
	if _, err := svc.Create(ctx, "alpha", dtos.WebhookCreateDTO{URL: "http://x.test", Events: []string{"ready", "bogus"}}); !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want UnknownEventError", err)
	}
	if _, err := svc.Create(ctx, "alpha", dtos.WebhookCreateDTO{URL: "http://x.test", Events: []string{}}); !errors.Is(err, events.ErrNoEvents) {
		t.Fatalf("error = %v, want ErrNoEvents", err)
	}
	if _, err := svc.Create(ctx, "alpha", dtos.WebhookCreateDTO{URL: "ftp://x.test", Events: []string{"ready"}}); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("error = %v, want ErrInvalidURL", err)
	}
	if _, err := svc.Create(ctx, "alpha", dtos.WebhookCreateDTO{URL: "http://x.test", Events: []string{"ready"}, RetryPolicy: "fibonacci"}); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("error = %v, want ErrInvalidPolicy", err)
	}
}

func TestService_UpdatePatchesOnlyGivenFields(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, 0)
	ctx := context.Background()

	hook, err := svc.Create(ctx, "alpha", dtos.WebhookCreateDTO{URL: "http://x.test", Events: []string{"ready"}, Secret: "keep"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(ctx, "alpha", hook.ID, dtos.WebhookUpdateDTO{
		Events:        []string{"qr.updated"},
		RetryAttempts: intPtr(1),
		RetryPolicy:   strPtr(entities.RetryPolicyConstant),
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.URL != "http://x.test" || updated.Secret != "keep" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if len(updated.Events) != 1 || updated.Events[0] != "QR_UPDATED" || updated.RetryAttempts != 1 || updated.RetryPolicy != entities.RetryPolicyConstant {
		t.Fatalf("update not applied: %+v", updated)
	}

	if _, err := svc.Update(ctx, "bravo", hook.ID, dtos.WebhookUpdateDTO{}); !errors.Is(err, ErrWebhookNotFound) {
		t.Fatalf("cross-session update error = %v", err)
	}
}

func TestService_TestDeliversSyntheticStatus(t *testing.T) {
	ep := &endpoint{status: func(int) int { return http.StatusOK }}
	srv := httptest.NewServer(ep)
	defer srv.Close()

	repo := newMemRepo()
	d, _ := newTestDispatcher(repo)
	svc := NewService(repo, d, 0)
	ctx := context.Background()

	active := false
	hook, err := svc.Create(ctx, "alpha", dtos.WebhookCreateDTO{URL: srv.URL, Events: []string{"message.ack"}, Active: &active})
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.Test(ctx, "alpha", hook.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Delivered || res.Attempts != 1 {
		t.Fatalf("result = %+v", res)
	}
	if ep.requests[0].header.Get(EventHeader) != "session.status" {
		t.Fatalf("test ping event = %s", ep.requests[0].header.Get(EventHeader))
	}

	logs, _, err := svc.Logs(ctx, "alpha", hook.ID, 1)
	if err != nil || len(logs) != 1 {
		t.Fatalf("logs = %+v, %v", logs, err)
	}

	if err := svc.Delete(ctx, "alpha", hook.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Test(ctx, "alpha", hook.ID); !errors.Is(err, ErrWebhookNotFound) {
		t.Fatalf("error = %v", err)
	}
}
