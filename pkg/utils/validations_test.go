package utils

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/wagate/pkg/entities"
)

func TestSessionIDTagMatchesLifecycleRule(t *testing.T) {
	v := validator.New()
	if err := Register(v); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{
		"alpha", "a", "A-b_9", strings.Repeat("x", 100), strings.Repeat("x", 101),
		"", "../etc", "a b", "a/b", "a.b", "ünï", "alpha\n",
	} {
		tagOK := v.Var(id, "sessionid") == nil
		if tagOK != entities.ValidSessionID(id) {
			t.Errorf("id %q: tag valid=%v, entities valid=%v", id, tagOK, !tagOK)
		}
	}
}

func TestRetryPolicyTag(t *testing.T) {
	v := validator.New()
	if err := Register(v); err != nil {
		t.Fatal(err)
	}

	for policy, want := range map[string]bool{
		entities.RetryPolicyLinear:      true,
		entities.RetryPolicyConstant:    true,
		entities.RetryPolicyExponential: true,
		"fibonacci":                     false,
		"":                              false,
	} {
		if got := v.Var(policy, "retrypolicy") == nil; got != want {
			t.Errorf("policy %q: valid=%v, want %v", policy, got, want)
		}
	}
}
