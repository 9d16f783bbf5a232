package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	cfg.Clock = clock
	limiter := New(&cfg)
	t.Cleanup(limiter.Close)
	return limiter, clock
}

func TestLoginLockoutAfterMaxAttempts(t *testing.T) {
	limiter, clock := newTestLimiter(t, Config{
		LoginMaxAttempts:  3,
		LoginLockout:      15 * time.Minute,
		LoginMaxIPPerHour: 100,
	})

	for i := 1; i <= 3; i++ {
		if result := limiter.CheckLogin("coach", "203.0.113.7"); !result.Allowed {
			t.Fatalf("attempt %d should be allowed, got %s", i, result.Reason)
		}
		locked := limiter.RecordLoginFailure("coach", "203.0.113.7")
		if locked != (i == 3) {
			t.Fatalf("attempt %d lockedOut=%v", i, locked)
		}
	}

	result := limiter.CheckLogin("COACH", "198.51.100.1")
	if result.Allowed || result.Reason != "lockout" {
		t.Fatalf("expected lockout across IPs and case, got %+v", result)
	}
	if result.RetryAfter != 15*time.Minute {
		t.Fatalf("retry after: got %v want 15m", result.RetryAfter)
	}

	clock.Advance(15 * time.Minute)
	if result := limiter.CheckLogin("coach", "203.0.113.7"); !result.Allowed {
		t.Fatalf("lockout should expire, got %s", result.Reason)
	}
	if limiter.RecordLoginFailure("coach", "203.0.113.7") {
		t.Fatalf("first failure after an expired lockout should start a new window")
	}
}

func TestLoginResetOnSuccess(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		LoginMaxAttempts:  2,
		LoginLockout:      time.Minute,
		LoginMaxIPPerHour: 100,
	})

	limiter.RecordLoginFailure("coach@example.com", "203.0.113.7")
	limiter.ResetLogin("coach@example.com")
	if limiter.RecordLoginFailure("coach@example.com", "203.0.113.7") {
		t.Fatalf("counter should restart after reset")
	}
}

func TestLoginIPLimit(t *testing.T) {
	limiter, clock := newTestLimiter(t, Config{
		LoginMaxAttempts:  100,
		LoginLockout:      time.Minute,
		LoginMaxIPPerHour: 2,
	})

	limiter.RecordLoginFailure("alice", "203.0.113.7")
	limiter.RecordLoginFailure("bob", "203.0.113.7")

	result := limiter.CheckLogin("carol", "203.0.113.7")
	if result.Allowed || result.Reason != "ip_hourly_limit" {
		t.Fatalf("expected ip limit, got %+v", result)
	}
	if result := limiter.CheckLogin("carol", "203.0.113.8"); !result.Allowed {
		t.Fatalf("other IPs should not be limited")
	}

	clock.Advance(time.Hour)
	if result := limiter.CheckLogin("carol", "203.0.113.7"); !result.Allowed {
		t.Fatalf("ip window should reset after an hour")
	}
}

func TestAllowRequestWindow(t *testing.T) {
	limiter, clock := newTestLimiter(t, Config{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		if result := limiter.AllowRequest("203.0.113.7"); !result.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	clock.Advance(20 * time.Second)
	result := limiter.AllowRequest("203.0.113.7")
	if result.Allowed {
		t.Fatalf("third request should be limited")
	}
	if result.RetryAfter != 40*time.Second {
		t.Fatalf("retry after: got %v want 40s", result.RetryAfter)
	}

	clock.Advance(40 * time.Second)
	if result := limiter.AllowRequest("203.0.113.7"); !result.Allowed {
		t.Fatalf("window should reset after a minute")
	}
}

func TestCleanupPurgesExpiredEntries(t *testing.T) {
	limiter, clock := newTestLimiter(t, *DefaultConfig())

	limiter.AllowRequest("203.0.113.7")
	limiter.RecordLoginFailure("coach", "203.0.113.7")

	clock.Advance(2 * time.Minute)
	limiter.cleanup()
	limiter.mu.RLock()
	requests, byID := len(limiter.requests), len(limiter.loginByID)
	limiter.mu.RUnlock()
	if requests != 0 {
		t.Fatalf("request windows: got %d, want 0", requests)
	}
	if byID != 1 {
		t.Fatalf("login failures should survive: got %d", byID)
	}

	clock.Advance(2 * time.Hour)
	limiter.cleanup()
	limiter.mu.RLock()
	byID, byIP := len(limiter.loginByID), len(limiter.loginByIP)
	limiter.mu.RUnlock()
	if byID != 0 || byIP != 0 {
		t.Fatalf("login entries: got %d by id, %d by ip", byID, byIP)
	}
}

func TestAllowRequestDisabled(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{})
	for i := 0; i < 1000; i++ {
		if !limiter.AllowRequest("203.0.113.7").Allowed {
			t.Fatalf("limit of 0 should disable request limiting")
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	limiter, _ := newTestLimiter(t, *DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				limiter.CheckLogin("coach", "203.0.113.7")
				limiter.RecordLoginFailure("coach", "203.0.113.7")
				limiter.AllowRequest("203.0.113.7")
				if j%10 == 0 {
					limiter.ResetLogin("coach")
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		expected   string
	}{
		{
			name:       "trusted proxy uses rightmost public forwarded IP",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.50",
		},
		{
			name:       "trusted proxy with only private hops",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "10.0.0.1",
		},
		{
			name:       "trusted proxy falls back to X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.51",
		},
		{
			name:       "untrusted proxy ignores forwarded headers",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50", "X-Real-IP": "203.0.113.51"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
		{
			name:       "remote address without port",
			remoteAddr: "192.168.1.100",
			expected:   "192.168.1.100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r, tt.trustProxy); got != tt.expected {
				t.Fatalf("GetClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"AB@Example.com", "***@example.com"},
		{"coach_anna", "co***"},
		{"al", "***"},
		{"", "***"},
	}
	for _, tt := range tests {
		if got := SanitizeIdentifier(tt.input); got != tt.expected {
			t.Fatalf("SanitizeIdentifier(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	for ip, want := range map[string]bool{
		"10.1.2.3":           true,
		"172.16.0.1":         true,
		"::ffff:192.168.1.1": true,
		"fe80::1":            true,
		"203.0.113.9":        false,
		"not-an-ip":          false,
	} {
		if got := isPrivateIP(ip); got != want {
			t.Fatalf("isPrivateIP(%q) = %v, want %v", ip, got, want)
		}
	}
}
