package activitymap_test

import (
	"testing"
	"time"

	auth "github.com/goliatone/go-token-auth"
	"github.com/goliatone/go-token-auth/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType:  auth.ActivityEventLogout,
		Subject:    "alice@example.com",
		AccountID:  "account-100",
		TokenID:    "jti-1",
		Metadata:   map[string]any{"ticket": "SEC-204"},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "account-100" {
		t.Fatalf("expected actor_id account-100, got %q", out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventLogout) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventLogout, out.Verb)
	}
	if out.ObjectType != "account" {
		t.Fatalf("expected object_type account, got %q", out.ObjectType)
	}
	if out.ObjectID != "account-100" {
		t.Fatalf("expected object_id account-100, got %q", out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata["ticket"] != "SEC-204" {
		t.Fatalf("expected metadata ticket SEC-204, got %#v", out.Metadata["ticket"])
	}
	if out.Metadata[activitymap.MetadataKeyTokenID] != "jti-1" {
		t.Fatalf("expected metadata token_id jti-1, got %#v", out.Metadata[activitymap.MetadataKeyTokenID])
	}
	if out.Metadata[activitymap.MetadataKeySubject] != "alice@example.com" {
		t.Fatalf("expected metadata subject, got %#v", out.Metadata[activitymap.MetadataKeySubject])
	}
	if _, ok := event.Metadata[activitymap.MetadataKeyTokenID]; ok {
		t.Fatalf("expected source metadata to stay untouched")
	}
}

func TestNormalizeUnknownAccount(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		Subject:   "nobody@example.com",
	})

	if out.ActorID != "nobody@example.com" {
		t.Fatalf("expected actor_id to fall back to subject, got %q", out.ActorID)
	}
	if out.ObjectID != "nobody@example.com" {
		t.Fatalf("expected object_id to fall back to subject, got %q", out.ObjectID)
	}
	if out.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be filled")
	}
}

func TestNormalizeOptions(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(
		auth.ActivityEvent{EventType: auth.ActivityEventSignupRejected},
		activitymap.WithDefaultChannel(" audit "),
		activitymap.WithDefaultObjectType("user"),
		activitymap.WithActorFallback("system"),
		nil,
	)

	if out.Channel != "audit" {
		t.Fatalf("expected channel audit, got %q", out.Channel)
	}
	if out.ObjectType != "user" {
		t.Fatalf("expected object_type user, got %q", out.ObjectType)
	}
	if out.ActorID != "system" {
		t.Fatalf("expected actor_id system, got %q", out.ActorID)
	}
	if out.Metadata != nil {
		t.Fatalf("expected nil metadata, got %#v", out.Metadata)
	}
}
