// Package ratelimit implements per-client-IP token buckets using
// golang.org/x/time/rate, the same golang.org/x/... family the teacher
// already depends on for crypto. No library in the example pack implements
// an IP-keyed limiter (see DESIGN.md for why this stays on the extended
// standard library rather than a third-party limiter).
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy describes one rate-limit bucket: N events per window.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Limiter holds one *rate.Limiter per (policy, client IP), created lazily.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	policies map[string]Policy
	disabled bool
}

func New(disabled bool, policies ...Policy) *Limiter {
	l := &Limiter{
		buckets:  make(map[string]*rate.Limiter),
		policies: make(map[string]Policy, len(policies)),
		disabled: disabled,
	}
	for _, p := range policies {
		l.policies[p.Name] = p
	}
	return l
}

// Allow reports whether a request from clientIP under the named policy may
// proceed, consuming one token if so.
func (l *Limiter) Allow(policyName, clientIP string) bool {
	if l.disabled {
		return true
	}
	p, ok := l.policies[policyName]
	if !ok {
		return true
	}
	key := policyName + ":" + clientIP

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		every := rate.Every(p.Window / time.Duration(p.Limit))
		b = rate.NewLimiter(every, p.Limit)
		l.buckets[key] = b
	}
	return b.Allow()
}

// Policies matching §4.1's rate-limit table.
var (
	Login          = Policy{Name: "login", Limit: 5, Window: time.Minute}
	Registration   = Policy{Name: "registration", Limit: 3, Window: time.Hour}
	PasswordChange = Policy{Name: "password_change", Limit: 5, Window: time.Hour}
	ForgotPassword = Policy{Name: "forgot_password", Limit: 3, Window: time.Hour}
	ResetPassword  = Policy{Name: "reset_password", Limit: 5, Window: time.Hour}
	ProfileUpdate  = Policy{Name: "profile_update", Limit: 10, Window: time.Minute}
)

// AllPolicies is the full set installed at gateway startup.
func AllPolicies() []Policy {
	return []Policy{Login, Registration, PasswordChange, ForgotPassword, ResetPassword, ProfileUpdate}
}
