package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware_RequestID(t *testing.T) {
	m := NewMiddleware()
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"incoming reused", "abc-123", true},
		{"control characters rejected", "bad\nid", false},
		{"overlong rejected", strings.Repeat("x", maxRequestIDLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if seen == "" {
				t.Fatal("request ID missing from context")
			}
			if got := rec.Header().Get(HeaderRequestID); got != seen {
				t.Errorf("response header %q does not match context %q", got, seen)
			}
			if tt.keep && seen != tt.incoming {
				t.Errorf("expected incoming ID %q to be kept, got %q", tt.incoming, seen)
			}
			if !tt.keep && !strings.HasPrefix(seen, "req_") {
				t.Errorf("expected generated ID, got %q", seen)
			}
		})
	}

	if got := m.GetMetrics(); got.TotalRequests != int64(len(tests)) || got.InFlight != 0 {
		t.Errorf("unexpected metrics %+v", got)
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate request ID %s", id)
		}
		seen[id] = true
	}
}
