package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/convo/internal/config"
	"github.com/flemzord/convo/internal/session/sessiontest"
)

const testToken = "secret-token"

func testGatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		Enabled:         true,
		Bind:            "127.0.0.1:0",
		Auth:            config.AuthConfig{BearerToken: testToken},
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer returns a gateway over a fresh in-memory environment whose
// home is /home/bob with /home/bob/proj present.
func newTestServer(t *testing.T, opts ...Option) (*Server, *sessiontest.Env) {
	t.Helper()
	env := sessiontest.New(t, "/home/bob", "/home/bob/proj", "/home/bob/other")
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(testGatewayConfig(), env.Manager, env.Store, opts...), env
}

// do sends an authenticated request through the full router.
func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
