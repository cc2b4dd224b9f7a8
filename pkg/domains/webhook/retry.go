package webhook

import (
	"time"

	"github.com/wagate/pkg/entities"
)

const maxBackoff = time.Hour

// RetryPolicy is the per-webhook retry schedule.
type RetryPolicy struct {
	Kind     string
	Attempts int
	Delay    time.Duration
}

func policyOf(hook entities.Webhook) RetryPolicy {
	return RetryPolicy{
		Kind:     hook.RetryPolicy,
		Attempts: hook.RetryAttempts,
		Delay:    time.Duration(hook.RetryDelaySeconds) * time.Second,
	}
}

// TotalAttempts is the first try plus every retry.
func (p RetryPolicy) TotalAttempts() int {
	if p.Attempts < 0 {
		return 1
	}
	return 1 + p.Attempts
}

// NextDelay is the wait before retry number retry (0 for the first retry).
// Linear and constant policies wait Delay every time; exponential doubles it
// per retry.
func (p RetryPolicy) NextDelay(retry int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}
	if p.Kind != entities.RetryPolicyExponential {
		return p.Delay
	}
	delay := p.Delay
	for i := 0; i < retry; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

func validPolicy(kind string) bool {
	switch kind {
	case entities.RetryPolicyLinear, entities.RetryPolicyConstant, entities.RetryPolicyExponential:
		return true
	}
	return false
}
