package requestid_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multisite/pkg/requestid"
)

func serve(t *testing.T, mw func(http.Handler) http.Handler, header, value string) (string, *httptest.ResponseRecorder) {
	t.Helper()

	var seen string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if value != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates a uuid", func(t *testing.T) {
		t.Parallel()

		id, rec := serve(t, requestid.Middleware, requestid.Header, "")
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		assert.Equal(t, id, rec.Header().Get(requestid.Header))
	})

	t.Run("reuses a valid incoming id", func(t *testing.T) {
		t.Parallel()

		id, rec := serve(t, requestid.Middleware, requestid.Header, "req-123_abc")
		assert.Equal(t, "req-123_abc", id)
		assert.Equal(t, "req-123_abc", rec.Header().Get(requestid.Header))
	})

	invalid := []string{
		"test@request#id",
		"test request id",
		"test/request/id",
		"<script>alert(1)</script>",
		strings.Repeat("a", 129),
	}
	for _, value := range invalid {
		t.Run("replaces "+value[:min(len(value), 16)], func(t *testing.T) {
			t.Parallel()

			id, _ := serve(t, requestid.Middleware, requestid.Header, value)
			assert.NotEqual(t, value, id)
			assert.True(t, requestid.IsValid(id))
		})
	}

	t.Run("custom header and generator", func(t *testing.T) {
		t.Parallel()

		mw := requestid.New(
			requestid.WithHeader("X-Correlation-ID"),
			requestid.WithGenerator(func() string { return "fixed" }),
		)
		id, rec := serve(t, mw, "X-Correlation-ID", "")
		assert.Equal(t, "fixed", id)
		assert.Equal(t, "fixed", rec.Header().Get("X-Correlation-ID"))
		assert.Empty(t, rec.Header().Get(requestid.Header))
	})

	t.Run("untrusted incoming id", func(t *testing.T) {
		t.Parallel()

		mw := requestid.New(requestid.WithTrustIncoming(false))
		id, _ := serve(t, mw, requestid.Header, "client-chosen")
		assert.NotEqual(t, "client-chosen", id)
	})
}

func TestContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, requestid.FromContext(context.Background()))

	ctx := requestid.WithContext(context.Background(), "abc")
	assert.Equal(t, "abc", requestid.FromContext(ctx))

	attr, ok := requestid.LoggerExtractor()(ctx)
	require.True(t, ok)
	assert.Equal(t, slog.String("request_id", "abc"), attr)

	_, ok = requestid.LoggerExtractor()(context.Background())
	assert.False(t, ok)
}
