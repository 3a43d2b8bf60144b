package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-analyzer/internal/metrics"
)

// maxMetaRunes matches the width of the title/description/h1 columns.
const maxMetaRunes = 255

var tracer = otel.Tracer("github.com/JakeFAU/page-analyzer/internal/analyzer")

// Service composes the repositories, fetcher and extractor into the
// operations exposed over HTTP.
type Service struct {
	urls      URLRepository
	checks    CheckRepository
	fetcher   Fetcher
	extractor Extractor
	limiter   Limiter
	clock     Clock
	logger    *zap.Logger
}

// NewService wires a Service. limiter may be nil.
func NewService(
	urls URLRepository,
	checks CheckRepository,
	fetcher Fetcher,
	extractor Extractor,
	limiter Limiter,
	clock Clock,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		urls:      urls,
		checks:    checks,
		fetcher:   fetcher,
		extractor: extractor,
		limiter:   limiter,
		clock:     clock,
		logger:    logger,
	}
}

// AddURL validates raw and stores its normalized form. When the URL is
// already known the stored row is returned with existed set to true.
func (s *Service) AddURL(ctx context.Context, raw string) (URL, bool, error) {
	name, err := NormalizeURL(raw)
	if err != nil {
		return URL{}, false, err
	}

	existing, err := s.urls.FindByName(ctx, name)
	switch {
	case err == nil:
		return existing, true, nil
	case !errors.Is(err, ErrNotFound):
		return URL{}, false, fmt.Errorf("find url by name: %w", err)
	}

	created, err := s.urls.Create(ctx, name, s.today())
	if errors.Is(err, ErrDuplicateURL) {
		// Lost an insert race; the other writer's row wins.
		existing, findErr := s.urls.FindByName(ctx, name)
		if findErr != nil {
			return URL{}, false, fmt.Errorf("find url after conflict: %w", findErr)
		}
		return existing, true, nil
	}
	if err != nil {
		return URL{}, false, fmt.Errorf("create url: %w", err)
	}
	s.logger.Info("url added", zap.Int64("url_id", created.ID), zap.String("name", created.Name))
	return created, false, nil
}

// GetURL loads a URL and its checks, newest first.
func (s *Service) GetURL(ctx context.Context, id int64) (URL, []Check, error) {
	u, err := s.urls.FindByID(ctx, id)
	if err != nil {
		return URL{}, nil, fmt.Errorf("find url %d: %w", id, err)
	}
	checks, err := s.checks.ListByURL(ctx, id)
	if err != nil {
		return URL{}, nil, fmt.Errorf("list checks for url %d: %w", id, err)
	}
	return u, checks, nil
}

// ListURLs returns every URL with its latest check, newest URL first.
func (s *Service) ListURLs(ctx context.Context) ([]URLSummary, error) {
	summaries, err := s.urls.ListSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list urls: %w", err)
	}
	return summaries, nil
}

// CheckURL fetches the stored URL and records the outcome. Network errors,
// timeouts and 5xx responses return ErrCheckFailed and write nothing.
func (s *Service) CheckURL(ctx context.Context, id int64) (_ Check, err error) {
	ctx, span := tracer.Start(ctx, "analyzer.CheckURL")
	span.SetAttributes(attribute.Int64("url.id", id))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	u, err := s.urls.FindByID(ctx, id)
	if err != nil {
		return Check{}, fmt.Errorf("find url %d: %w", id, err)
	}
	logger := s.logger.With(zap.Int64("url_id", u.ID), zap.String("url", u.Name))

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, u.Name); err != nil {
			metrics.ObserveCheck(OutcomeFailed.String())
			logger.Warn("check throttled", zap.Error(err))
			return Check{}, fmt.Errorf("%w: %w", ErrCheckFailed, err)
		}
	}

	res, err := s.fetcher.Fetch(ctx, u.Name)
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	if err != nil {
		metrics.ObserveCheck(OutcomeFailed.String())
		logger.Warn("fetch failed", zap.Error(err))
		return Check{}, fmt.Errorf("%w: %w", ErrCheckFailed, err)
	}
	metrics.ObserveFetch(u.Name, res.Duration)

	outcome := Classify(res.StatusCode)
	metrics.ObserveCheck(outcome.String())
	if !outcome.Recorded() {
		logger.Warn("check failed", zap.Int("status_code", res.StatusCode))
		return Check{}, fmt.Errorf("%w: status %d", ErrCheckFailed, res.StatusCode)
	}

	status := res.StatusCode
	check := Check{
		URLID:      u.ID,
		StatusCode: &status,
		CreatedAt:  s.today(),
	}
	if res.StatusCode == http.StatusOK {
		meta := s.extractor.Extract(res.Body, res.Headers.Get("Content-Type"))
		check.Title = truncateRunes(meta.Title, maxMetaRunes)
		check.Description = truncateRunes(meta.Description, maxMetaRunes)
		check.H1 = truncateRunes(meta.H1, maxMetaRunes)
	}

	saved, err := s.checks.Create(ctx, check)
	if err != nil {
		return Check{}, fmt.Errorf("save check: %w", err)
	}
	logger.Info("check recorded",
		zap.Int64("check_id", saved.ID),
		zap.Int("status_code", status),
		zap.String("final_url", res.URL),
		zap.Duration("duration", res.Duration),
	)
	return saved, nil
}

// today returns the current UTC date at midnight; created_at columns are dates.
func (s *Service) today() time.Time {
	return s.clock.Now().UTC().Truncate(24 * time.Hour)
}

// truncateRunes also replaces invalid UTF-8, which Postgres text columns reject.
func truncateRunes(s string, limit int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
