package analyzer_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/page-analyzer/internal/analyzer"
	"github.com/JakeFAU/page-analyzer/internal/extract"
	"github.com/JakeFAU/page-analyzer/internal/storage/memory"
)

var fixedNow = time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return fixedNow }

type stubFetcher struct {
	mu     sync.Mutex
	result analyzer.FetchResult
	err    error
	calls  []string
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) (analyzer.FetchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, rawURL)
	return s.result, s.err
}

type stubLimiter struct {
	err   error
	hosts []string
}

func (s *stubLimiter) Wait(_ context.Context, rawURL string) error {
	s.hosts = append(s.hosts, rawURL)
	return s.err
}

type failingURLs struct {
	analyzer.URLRepository
	err error
}

func (f failingURLs) FindByName(context.Context, string) (analyzer.URL, error) {
	return analyzer.URL{}, f.err
}

func (f failingURLs) ListSummaries(context.Context) ([]analyzer.URLSummary, error) {
	return nil, f.err
}

func newService(t *testing.T, fetcher analyzer.Fetcher, limiter analyzer.Limiter) (*analyzer.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := analyzer.NewService(store.URLs(), store.Checks(), fetcher, extract.New(), limiter, fixedClock{}, zap.NewNop())
	return svc, store
}

func TestAddURLStoresNormalizedName(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, &stubFetcher{}, nil)
	u, existed, err := svc.AddURL(context.Background(), "  https://Example.com/path?x=1 ")
	require.NoError(t, err)
	require.False(t, existed)
	require.Equal(t, "https://Example.com", u.Name)
	require.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), u.CreatedAt)
}

func TestAddURLTwiceReturnsExisting(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, &stubFetcher{}, nil)
	ctx := context.Background()

	first, existed, err := svc.AddURL(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.False(t, existed)

	second, existed, err := svc.AddURL(ctx, "https://example.com/b?q=2")
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, first.ID, second.ID)

	rows, err := svc.ListURLs(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestAddURLValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, &stubFetcher{}, nil)
	_, _, err := svc.AddURL(context.Background(), "")
	require.ErrorIs(t, err, analyzer.ErrURLRequired)
	_, _, err = svc.AddURL(context.Background(), "not a url")
	require.ErrorIs(t, err, analyzer.ErrInvalidURL)
}

func TestAddURLPropagatesRepositoryErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	svc := analyzer.NewService(failingURLs{err: boom}, nil, nil, nil, nil, fixedClock{}, nil)
	_, _, err := svc.AddURL(context.Background(), "https://example.com")
	require.ErrorIs(t, err, boom)
	require.False(t, analyzer.IsValidationError(err))

	_, err = svc.ListURLs(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestCheckURLExtractsMetadataOn200(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: analyzer.FetchResult{
		StatusCode: 200,
		Body: []byte(`<html><head><title>Home</title><meta name="description" content="Desc"></head>
<body><h1>Hello</h1></body></html>`),
		Duration: 10 * time.Millisecond,
	}}
	limiter := &stubLimiter{}
	svc, _ := newService(t, fetcher, limiter)
	ctx := context.Background()

	u, _, err := svc.AddURL(ctx, "https://example.com")
	require.NoError(t, err)

	check, err := svc.CheckURL(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, check.StatusCode)
	require.Equal(t, 200, *check.StatusCode)
	require.Equal(t, "Home", check.Title)
	require.Equal(t, "Desc", check.Description)
	require.Equal(t, "Hello", check.H1)
	require.Equal(t, []string{"https://example.com"}, fetcher.calls)
	require.Equal(t, []string{"https://example.com"}, limiter.hosts)

	_, checks, err := svc.GetURL(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, checks, 1)
}

func TestCheckURLRecords404WithoutMetadata(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: analyzer.FetchResult{
		StatusCode: 404,
		Body:       []byte(`<html><head><title>Not Found</title></head><body><h1>Gone</h1></body></html>`),
	}}
	svc, _ := newService(t, fetcher, nil)
	ctx := context.Background()
	u, _, err := svc.AddURL(ctx, "https://example.com")
	require.NoError(t, err)

	check, err := svc.CheckURL(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 404, *check.StatusCode)
	require.Empty(t, check.Title)
	require.Empty(t, check.Description)
	require.Empty(t, check.H1)
}

func TestCheckURLRedirectStatusSkipsExtraction(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: analyzer.FetchResult{StatusCode: 204, Body: []byte("<title>x</title>")}}
	svc, _ := newService(t, fetcher, nil)
	ctx := context.Background()
	u, _, _ := svc.AddURL(ctx, "https://example.com")

	check, err := svc.CheckURL(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 204, *check.StatusCode)
	require.Empty(t, check.Title)
}

func TestCheckURLFetchErrorWritesNothing(t *testing.T) {
	t.Parallel()

	timeout := context.DeadlineExceeded
	svc, _ := newService(t, &stubFetcher{err: timeout}, nil)
	ctx := context.Background()
	u, _, _ := svc.AddURL(ctx, "https://example.com")

	_, err := svc.CheckURL(ctx, u.ID)
	require.ErrorIs(t, err, analyzer.ErrCheckFailed)
	require.ErrorIs(t, err, timeout)

	_, checks, err := svc.GetURL(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, checks)

	rows, err := svc.ListURLs(ctx)
	require.NoError(t, err)
	require.Nil(t, rows[0].LastStatusCode)
}

func TestCheckURLServerErrorWritesNothing(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, &stubFetcher{result: analyzer.FetchResult{StatusCode: 502}}, nil)
	ctx := context.Background()
	u, _, _ := svc.AddURL(ctx, "https://example.com")

	_, err := svc.CheckURL(ctx, u.ID)
	require.ErrorIs(t, err, analyzer.ErrCheckFailed)
	_, checks, _ := svc.GetURL(ctx, u.ID)
	require.Empty(t, checks)
}

func TestCheckURLLimiterErrorFailsCheck(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: analyzer.FetchResult{StatusCode: 200}}
	svc, _ := newService(t, fetcher, &stubLimiter{err: context.Canceled})
	ctx := context.Background()
	u, _, _ := svc.AddURL(ctx, "https://example.com")

	_, err := svc.CheckURL(ctx, u.ID)
	require.ErrorIs(t, err, analyzer.ErrCheckFailed)
	require.Empty(t, fetcher.calls)
}

func TestCheckURLUnknownID(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, &stubFetcher{}, nil)
	_, err := svc.CheckURL(context.Background(), 99)
	require.ErrorIs(t, err, analyzer.ErrNotFound)

	_, _, err = svc.GetURL(context.Background(), 99)
	require.ErrorIs(t, err, analyzer.ErrNotFound)
}

func TestCheckURLTruncatesLongMetadata(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 300)
	fetcher := &stubFetcher{result: analyzer.FetchResult{
		StatusCode: 200,
		Body:       []byte("<html><head><title>" + long + "</title></head><body><h1>" + long + "</h1></body></html>"),
	}}
	svc, _ := newService(t, fetcher, nil)
	ctx := context.Background()
	u, _, _ := svc.AddURL(ctx, "https://example.com")

	check, err := svc.CheckURL(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, []rune(check.Title), 255)
	require.Len(t, []rune(check.H1), 255)
}

type rawExtractor struct{ meta analyzer.PageMeta }

func (r rawExtractor) Extract([]byte, string) analyzer.PageMeta { return r.meta }

func TestCheckURLDecodesMetaDeclaredCharset(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: analyzer.FetchResult{
		StatusCode: 200,
		Headers:    http.Header{"Content-Type": []string{"text/html"}},
		Body: []byte("<html><head><meta charset=\"windows-1251\"><title>\xcf\xf0\xe8\xe2\xe5\xf2</title></head>" +
			"<body><h1>\xcc\xe8\xf0</h1></body></html>"),
	}}
	svc, _ := newService(t, fetcher, nil)
	ctx := context.Background()
	u, _, _ := svc.AddURL(ctx, "https://example.ru")

	check, err := svc.CheckURL(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Привет", check.Title)
	require.Equal(t, "Мир", check.H1)
}

func TestCheckURLReplacesInvalidUTF8(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	extractor := rawExtractor{meta: analyzer.PageMeta{Title: "bad\xcf\xf0", Description: "ok", H1: "\xff"}}
	fetcher := &stubFetcher{result: analyzer.FetchResult{StatusCode: 200}}
	svc := analyzer.NewService(store.URLs(), store.Checks(), fetcher, extractor, nil, fixedClock{}, zap.NewNop())
	ctx := context.Background()
	u, _, _ := svc.AddURL(ctx, "https://example.com")

	check, err := svc.CheckURL(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, utf8.ValidString(check.Title))
	require.True(t, utf8.ValidString(check.H1))
	require.Equal(t, "bad\uFFFD", check.Title)
	require.Equal(t, "ok", check.Description)
}

func TestListURLsShowsLatestCheck(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: analyzer.FetchResult{StatusCode: 500}}
	svc, _ := newService(t, fetcher, nil)
	ctx := context.Background()
	a, _, _ := svc.AddURL(ctx, "https://a.example.com")
	b, _, _ := svc.AddURL(ctx, "https://b.example.com")

	fetcher.result = analyzer.FetchResult{StatusCode: 404}
	_, err := svc.CheckURL(ctx, a.ID)
	require.NoError(t, err)
	fetcher.result = analyzer.FetchResult{StatusCode: 200}
	_, err = svc.CheckURL(ctx, a.ID)
	require.NoError(t, err)

	rows, err := svc.ListURLs(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, b.ID, rows[0].ID)
	require.Nil(t, rows[0].LastStatusCode)
	require.Equal(t, a.ID, rows[1].ID)
	require.Equal(t, 200, *rows[1].LastStatusCode)
	require.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), *rows[1].LastCheckedAt)
}

func TestCheckURLLogsFinalURL(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	store := memory.NewStore()
	fetcher := &stubFetcher{result: analyzer.FetchResult{
		URL:        "https://www.example.com/home",
		StatusCode: 200,
		Headers:    http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       []byte("<title>Home</title>"),
	}}
	svc := analyzer.NewService(store.URLs(), store.Checks(), fetcher, extract.New(), nil, fixedClock{}, zap.New(core))
	ctx := context.Background()
	u, _, err := svc.AddURL(ctx, "https://example.com")
	require.NoError(t, err)

	_, err = svc.CheckURL(ctx, u.ID)
	require.NoError(t, err)

	entries := logs.FilterMessage("check recorded").All()
	require.Len(t, entries, 1)
	require.Equal(t, "https://www.example.com/home", entries[0].ContextMap()["final_url"])
}
