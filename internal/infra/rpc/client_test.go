package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, req map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_CallSendsJSONRPC10(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		gotAuth = user + ":" + pass

		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if _, ok := req["jsonrpc"]; ok {
			t.Errorf("request carries jsonrpc member: %v", req)
		}
		if req["method"] != "getblockcount" {
			t.Errorf("method = %v", req["method"])
		}
		if params, ok := req["params"].([]any); !ok || len(params) != 0 {
			t.Errorf("params = %v, want []", req["params"])
		}
		_, _ = w.Write([]byte(`{"result":812345,"error":null,"id":1}`))
	}))
	defer srv.Close()

	url := strings.Replace(srv.URL, "http://", "http://alice:secret@", 1)
	c, err := NewClient(Config{URL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	raw, err := c.Call(context.Background(), "getblockcount")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	var height int64
	if err := json.Unmarshal(raw, &height); err != nil {
		t.Fatal(err)
	}
	if height != 812345 {
		t.Errorf("height = %d, want 812345", height)
	}
	if gotAuth != "alice:secret" {
		t.Errorf("basic auth = %q", gotAuth)
	}
}

func TestClient_NodeErrorOnHTTP500(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, req map[string]any) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"result":null,"error":{"code":-5,"message":"Invalid or non-wallet transaction id"},"id":1}`))
	})

	c, err := NewClient(Config{URL: srv.URL, Timeout: time.Second, MaxAttempts: 3})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = c.Call(context.Background(), "gettransaction", "deadbeef")
	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if rpcErr.Code != -5 {
		t.Errorf("code = %d, want -5", rpcErr.Code)
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, req map[string]any) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("bad gateway"))
			return
		}
		_, _ = w.Write([]byte(`{"result":42.5,"error":null,"id":1}`))
	})

	c, err := NewClient(Config{URL: srv.URL, Timeout: time.Second, MaxAttempts: 3})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.initialDelay = time.Millisecond

	raw, err := c.Call(context.Background(), "getbalance")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(raw) != "42.5" || calls.Load() != 3 {
		t.Errorf("result=%s calls=%d", raw, calls.Load())
	}
}

func TestClient_NeverRetriesWrites(t *testing.T) {
	for _, method := range []string{"sendtoaddress", "getnewaddress"} {
		t.Run(method, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// The node accepts the request but answers after the deadline.
				if calls.Add(1) == 1 {
					time.Sleep(200 * time.Millisecond)
				}
				_, _ = w.Write([]byte(`{"result":"txid-1","error":null,"id":1}`))
			}))
			defer srv.Close()

			c, err := NewClient(Config{URL: srv.URL, Timeout: 50 * time.Millisecond, MaxAttempts: 3})
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			c.initialDelay = time.Millisecond

			if _, err := c.Call(context.Background(), method, "bc1qdest", 0.1); err == nil {
				t.Fatal("expected timeout error")
			}
			time.Sleep(250 * time.Millisecond)
			if got := calls.Load(); got != 1 {
				t.Errorf("%s reached the node %d times, want 1", method, got)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	for method, want := range map[string]bool{
		"getblockcount":  true,
		"getbalance":     true,
		"gettransaction": true,
		"sendtoaddress":  false,
		"getnewaddress":  false,
		"unknownmethod":  false,
	} {
		if got := Retryable(method); got != want {
			t.Errorf("Retryable(%q) = %v, want %v", method, got, want)
		}
	}
}

func TestClient_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, req map[string]any) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	c, err := NewClient(Config{URL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Call(context.Background(), "getbalance"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_DeadlineBoundsCall(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(Config{URL: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	start := time.Now()
	if _, err := c.Call(context.Background(), "getinfo"); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("call was not bounded by the timeout")
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	if _, err := NewClient(Config{URL: "localhost"}); err == nil {
		t.Error("expected error for url without scheme")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorAction
	}{
		{"nil", nil, ActionRetry},
		{"node error", &Error{Code: -5, Message: "Invalid address"}, ActionFatal},
		{"wrapped node error", errors.Join(errors.New("gettransaction"), &Error{Code: -8}), ActionFatal},
		{"unauthorized", errors.New("http 401: Unauthorized"), ActionFatal},
		{"not found", errors.New("http 404: "), ActionFatal},
		{"bad gateway", errors.New("http 502: bad gateway"), ActionRetry},
		{"connection refused", errors.New("dial tcp 127.0.0.1:8332: connection refused"), ActionRetry},
		{"timeout", context.DeadlineExceeded, ActionRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}
