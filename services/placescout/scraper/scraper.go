package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"placescout/lib/browser"
	"placescout/lib/fallback"
	"placescout/services/placescout/extract"
	"placescout/services/placescout/planner"
	"placescout/services/placescout/record"
	"placescout/services/placescout/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("services/placescout/scraper")
var meter = otel.Meter("services/placescout/scraper")

var acceptedCounter, _ = meter.Int64Counter("placescout.records.accepted")
var duplicateCounter, _ = meter.Int64Counter("placescout.records.duplicates")
var failedCounter, _ = meter.Int64Counter("placescout.results.failed")

// ErrQueryAborted means a query could not reach its result list, the run
// moves on to the next query.
var ErrQueryAborted = errors.New("query aborted")

type Locators struct {
	SearchBox     browser.Locator
	ConsentButton browser.Locator
	PlacesToggle  browser.Locator
	MapsLink      browser.Locator
	Results       browser.Locator
}

var DefaultLocators = Locators{
	SearchBox:     browser.Locator{Selector: `[name="q"]`},
	ConsentButton: browser.Locator{Selector: "button div", Text: `^(Tout refuser|Refuser tout)$`},
	PlacesToggle:  browser.Locator{Selector: "span", Text: `^Lieux$`},
	MapsLink:      browser.Locator{Selector: `a[href*="maps.google"]`},
	Results:       browser.Locator{Selector: ".cXedhc"},
}

type Options struct {
	SearchUrl string
	Locators  Locators
	// inserted between actions so the page can finish rendering
	Pause time.Duration
	// how long to wait for an element to appear
	Timeout     time.Duration
	DetailPause time.Duration
	RoutePause  time.Duration
}

func DefaultOptions() Options {
	return Options{
		SearchUrl:   "https://www.google.com/",
		Locators:    DefaultLocators,
		Pause:       time.Second,
		Timeout:     2 * time.Second,
		DetailPause: 3 * time.Second,
		RoutePause:  5 * time.Second,
	}
}

type Stats struct {
	Queries         int
	// queries that ran to their end, aborted ones included. a run resumed
	// with --skip <Completed> picks up where this one stopped
	Completed       int
	AbortedQueries  int
	Results         int
	Accepted        int
	Duplicates      int
	Failed          int
	PersistFailures int
}

func (s *Stats) add(o Stats) {
	s.Queries += o.Queries
	s.Completed += o.Completed
	s.AbortedQueries += o.AbortedQueries
	s.Results += o.Results
	s.Accepted += o.Accepted
	s.Duplicates += o.Duplicates
	s.Failed += o.Failed
	s.PersistFailures += o.PersistFailures
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("queries", s.Queries),
		slog.Int("completed", s.Completed),
		slog.Int("aborted_queries", s.AbortedQueries),
		slog.Int("results", s.Results),
		slog.Int("accepted", s.Accepted),
		slog.Int("duplicates", s.Duplicates),
		slog.Int("failed", s.Failed),
		slog.Int("persist_failures", s.PersistFailures),
	)
}

// Scraper owns the session and the store for the duration of a run, it
// processes queries and their results strictly one after the other.
type Scraper struct {
	session   browser.Session
	store     *store.Store
	extractor extract.Extractor
	opts      Options
}

func New(session browser.Session, st *store.Store, opts Options) *Scraper {
	extractor := extract.New(session)
	extractor.DetailPause = opts.DetailPause
	extractor.RoutePause = opts.RoutePause
	return &Scraper{
		session:   session,
		store:     st,
		extractor: extractor,
		opts:      opts,
	}
}

// Run processes every query in order. a query that cannot reach its result
// list is logged and skipped, any other error ends the run.
func (s *Scraper) Run(ctx context.Context, queries []planner.Query) (Stats, error) {
	ctx, span := tracer.Start(ctx, "scraper:Run")
	defer span.End()

	var total Stats
	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		slog.InfoContext(ctx, "searching", "query", q.Text(), "n", i+1, "total", len(queries))

		stats, err := s.RunQuery(ctx, q)
		if err == nil || errors.Is(err, ErrQueryAborted) {
			stats.Completed = 1
		}
		total.add(stats)
		if errors.Is(err, ErrQueryAborted) {
			slog.WarnContext(ctx, "skipping query", "query", q.Text(), "err", err)
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "run failed")
			return total, err
		}
	}
	return total, nil
}

func (s *Scraper) pause(ctx context.Context) error {
	return browser.Sleep(ctx, s.opts.Pause)
}

func (s *Scraper) clickWhenPresent(ctx context.Context, loc browser.Locator) (bool, error) {
	el, err := s.session.WaitPresent(ctx, loc, s.opts.Timeout)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		slog.DebugContext(ctx, "element not present", "locator", loc.String(), "err", err)
		return false, nil
	}
	err = s.session.Click(ctx, el)
	if err != nil {
		slog.DebugContext(ctx, "failed to click", "locator", loc.String(), "err", err)
		return false, nil
	}
	return true, nil
}

func (s *Scraper) clickStrategy(name string, loc browser.Locator) fallback.Strategy[struct{}] {
	return fallback.Strategy[struct{}]{
		Name: name,
		Try: func(ctx context.Context) (struct{}, bool, error) {
			ok, err := s.clickWhenPresent(ctx, loc)
			return struct{}{}, ok, err
		},
	}
}

// dismissConsent refuses the consent dialog, which usually lives in the
// first iframe. no dialog is fine.
func (s *Scraper) dismissConsent(ctx context.Context) error {
	inFrame := fallback.Strategy[struct{}]{
		Name: "first frame",
		Try: func(ctx context.Context) (struct{}, bool, error) {
			err := s.session.SwitchFrame(ctx, 0)
			if err != nil {
				return struct{}{}, false, nil
			}
			defer func() {
				err := s.session.SwitchFrame(ctx, browser.DefaultFrame)
				if err != nil {
					slog.WarnContext(ctx, "failed to leave consent frame", "err", err)
				}
			}()
			ok, err := s.clickWhenPresent(ctx, s.opts.Locators.ConsentButton)
			return struct{}{}, ok, err
		},
	}
	chain := fallback.Chain[struct{}]{
		inFrame,
		s.clickStrategy("document", s.opts.Locators.ConsentButton),
	}

	_, via, err := chain.Resolve(ctx)
	if errors.Is(err, fallback.ErrExhausted) {
		slog.InfoContext(ctx, "no consent dialog detected")
		return nil
	}
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "consent dialog refused", "via", via)
	return s.pause(ctx)
}

func (s *Scraper) switchToResults(ctx context.Context) error {
	chain := fallback.Chain[struct{}]{
		s.clickStrategy("places toggle", s.opts.Locators.PlacesToggle),
		s.clickStrategy("maps link", s.opts.Locators.MapsLink),
	}
	_, via, err := chain.Resolve(ctx)
	if errors.Is(err, fallback.ErrExhausted) {
		return fmt.Errorf("%w: could not open the places view", ErrQueryAborted)
	}
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "opened places view", "via", via)
	return nil
}

// RunQuery searches for q and processes every result it lists.
func (s *Scraper) RunQuery(ctx context.Context, q planner.Query) (Stats, error) {
	ctx, span := tracer.Start(ctx, "scraper:RunQuery")
	defer span.End()
	span.SetAttributes(
		attribute.String("category", q.Category),
		attribute.String("locality", q.Locality),
	)

	stats := Stats{Queries: 1}
	abort := func(err error) (Stats, error) {
		if errors.Is(err, ErrQueryAborted) {
			stats.AbortedQueries++
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return stats, err
	}

	err := s.session.Navigate(ctx, s.opts.SearchUrl)
	if err != nil {
		return abort(fmt.Errorf("failed to navigate to '%s': %w", s.opts.SearchUrl, err))
	}
	err = s.pause(ctx)
	if err != nil {
		return abort(err)
	}

	err = s.dismissConsent(ctx)
	if err != nil {
		return abort(err)
	}

	_, err = s.session.WaitPresent(ctx, s.opts.Locators.SearchBox, s.opts.Timeout)
	if err != nil {
		return abort(fmt.Errorf("%w: search box: %w", ErrQueryAborted, err))
	}
	err = s.session.Submit(ctx, s.opts.Locators.SearchBox, q.Text())
	if err != nil {
		return abort(fmt.Errorf("%w: submit search: %w", ErrQueryAborted, err))
	}
	err = s.pause(ctx)
	if err != nil {
		return abort(err)
	}

	err = s.switchToResults(ctx)
	if err != nil {
		return abort(err)
	}
	_, err = s.session.WaitPresent(ctx, s.opts.Locators.Results, s.opts.Timeout)
	if err != nil {
		return abort(fmt.Errorf("%w: result list: %w", ErrQueryAborted, err))
	}
	err = s.pause(ctx)
	if err != nil {
		return abort(err)
	}

	results, err := s.session.FindAll(ctx, s.opts.Locators.Results, nil)
	if err != nil {
		return abort(err)
	}
	count := len(results)
	slog.InfoContext(ctx, "results found", "query", q.Text(), "count", count)

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		stats.Results++

		err := s.processResult(ctx, q, i, &stats)
		if err != nil {
			stats.Failed++
			failedCounter.Add(ctx, 1)
			slog.WarnContext(ctx, "failed to process result", "query", q.Text(), "result", i+1, "err", err)
		}

		s.returnToResults(ctx)
	}

	return stats, nil
}

// returnToResults goes back to the result list unless it is still showing,
// a result that failed before opening its detail view never left it.
func (s *Scraper) returnToResults(ctx context.Context) {
	_, listed, err := s.session.FindFirst(ctx, s.opts.Locators.Results, nil)
	if err == nil && listed {
		return
	}
	err = s.session.Back(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to go back to the result list", "err", err)
		return
	}
	_, err = s.session.WaitPresent(ctx, s.opts.Locators.Results, s.opts.Timeout)
	if err != nil {
		slog.WarnContext(ctx, "result list did not reappear", "err", err)
	}
}

func displayName(r record.Restaurant) string {
	if r.Name == "" {
		return "(unnamed)"
	}
	return r.Name
}

// processResult runs the per-result pipeline for the result at ordinal:
// extract, normalize, check for duplicates and persist.
func (s *Scraper) processResult(ctx context.Context, q planner.Query, ordinal int, stats *Stats) error {
	ctx, span := tracer.Start(ctx, "scraper:processResult")
	defer span.End()
	span.SetAttributes(attribute.Int("ordinal", ordinal))

	// handles from before the last navigation are stale, so the list is
	// enumerated again for every result
	results, err := s.session.FindAll(ctx, s.opts.Locators.Results, nil)
	if err != nil {
		return err
	}
	if ordinal >= len(results) {
		return fmt.Errorf("result is no longer listed (%d present)", len(results))
	}

	raw, err := s.extractor.Extract(ctx, results[ordinal])
	if err != nil {
		span.RecordError(err)
		return err
	}
	r := raw.Record(q.Category, q.Locality)
	slog.InfoContext(ctx, "processing", "name", displayName(r), "result", ordinal+1)

	if s.store.IsDuplicate(r) {
		stats.Duplicates++
		duplicateCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("locality", q.Locality)))
		reason := "same name, address and locality"
		if r.HasShareLink() {
			reason = "same share link"
		}
		slog.InfoContext(ctx, "already stored, skipping", "name", displayName(r), "reason", reason)
		return s.pause(ctx)
	}

	err = s.store.Append(ctx, r)
	switch {
	case errors.Is(err, store.ErrPersist):
		stats.PersistFailures++
		slog.WarnContext(ctx, "record kept in memory but not saved", "name", displayName(r), "err", err)
	case err != nil:
		return err
	}
	stats.Accepted++
	acceptedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("locality", q.Locality)))
	slog.InfoContext(ctx, "saved", "name", displayName(r), "records", s.store.Len())

	return s.pause(ctx)
}
