package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/page-analyzer/internal/analyzer"
)

func TestFetchReturnsBodyAndStatus(t *testing.T) {
	t.Parallel()

	gotUA := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA <- r.UserAgent()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>ok</title></head></html>"))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "page-analyzer-test", Timeout: time.Second}, nil)
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(res.Body), "<title>ok</title>")
	require.Equal(t, "text/html", res.Headers.Get("Content-Type"))
	require.Equal(t, "page-analyzer-test", <-gotUA)
}

func TestFetchReturnsErrorStatusesAsResults(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		status := status
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()

			f := New(Config{Timeout: time.Second}, nil)
			res, err := f.Fetch(context.Background(), srv.URL)
			require.NoError(t, err)
			require.Equal(t, status, res.StatusCode)
		})
	}
}

func TestFetchFollowsRedirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("landed"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(Config{Timeout: time.Second}, nil)
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "landed", string(res.Body))
}

func TestFetchTimesOut(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 50 * time.Millisecond}, nil)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestFetchConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f := New(Config{Timeout: time.Second}, nil)
	_, err := f.Fetch(context.Background(), addr)
	require.Error(t, err)
}

func TestFetchHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	f := New(Config{Timeout: time.Second}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "http://example.invalid")
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	f := New(Config{}, nil)
	require.Equal(t, defaultTimeout, f.cfg.Timeout)
	require.Equal(t, defaultMaxBodyBytes, f.cfg.MaxBodyBytes)
	require.Equal(t, defaultMaxBodyBytes, f.baseCollector.MaxBodySize)
	require.True(t, f.baseCollector.ParseHTTPErrorResponse)
	require.True(t, f.baseCollector.AllowURLRevisit)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{}, nil)
	var result analyzer.FetchResult
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, time.Now(), &result, &fetchErr)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com")},
	})
	require.Equal(t, http.StatusCreated, result.StatusCode)
	require.Equal(t, "body", string(result.Body))
	require.Equal(t, "ok", result.Headers.Get("X-Resp"))
	require.Equal(t, "https://example.com", result.URL)

	hooks.onError(nil, errors.New("boom"))
	require.EqualError(t, fetchErr, "boom")
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
