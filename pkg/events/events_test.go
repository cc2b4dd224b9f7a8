package events

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalize_WildcardExpandsToFullSet(t *testing.T) {
	star, err := Normalize([]string{"*"})
	if err != nil {
		t.Fatalf("normalize *: %v", err)
	}
	allTok, err := Normalize([]string{"ALL"})
	if err != nil {
		t.Fatalf("normalize ALL: %v", err)
	}
	mixed, err := Normalize([]string{"message.received", "*"})
	if err != nil {
		t.Fatalf("normalize mixed: %v", err)
	}

	want := All()
	for name, got := range map[string][]Type{"*": star, "ALL": allTok, "mixed": mixed} {
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: got %v, want %v", name, got, want)
		}
		for _, tt := range got {
			if string(tt) == Wildcard || string(tt) == WildcardAll {
				t.Errorf("%s: wildcard leaked into result", name)
			}
		}
	}
}

func TestNormalize_RoundTrip(t *testing.T) {
	for _, e := range All() {
		got, err := Normalize([]string{ToExternal(e)})
		if err != nil {
			t.Fatalf("normalize %q: %v", ToExternal(e), err)
		}
		if len(got) != 1 || got[0] != e {
			t.Errorf("round trip of %s produced %v", e, got)
		}
	}
}

func TestNormalize_LegacyAndDottedTokens(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []Type
	}{
		{"legacy", []string{"MESSAGE_RECEIVED"}, []Type{MessageReceived}},
		{"dotted", []string{"session.status"}, []Type{SessionStatus}},
		{"dedupe across forms", []string{"qr.updated", "QR_UPDATED", " qr.updated "}, []Type{QRUpdated}},
		{"keeps caller order", []string{"ready", "auth.failure"}, []Type{Ready, AuthFailure}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.tokens)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNormalize_RejectsUnknownTokens(t *testing.T) {
	_, err := Normalize([]string{"message.received", "message.exploded", "nope"})
	var unknown *UnknownEventError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownEventError, got %v", err)
	}
	if !reflect.DeepEqual(unknown.Tokens, []string{"message.exploded", "nope"}) {
		t.Fatalf("unexpected unknown tokens: %v", unknown.Tokens)
	}
}

func TestNormalize_EmptyIsAnError(t *testing.T) {
	if _, err := Normalize(nil); !errors.Is(err, ErrNoEvents) {
		t.Fatalf("expected ErrNoEvents for nil, got %v", err)
	}
	if _, err := Normalize([]string{}); !errors.Is(err, ErrNoEvents) {
		t.Fatalf("expected ErrNoEvents for empty slice, got %v", err)
	}
}

func TestToExternal(t *testing.T) {
	if got := ToExternal(MessageReceived); got != "message.received" {
		t.Fatalf("got %q", got)
	}
	if got := SessionStatus.External(); got != "session.status" {
		t.Fatalf("got %q", got)
	}
}
