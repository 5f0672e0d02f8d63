package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"placescout/lib/browser"
	"placescout/lib/fallback"
	"placescout/lib/textutil"
	"placescout/services/placescout/record"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/placescout/extract")

// Raw holds the field values exactly as they were read, an empty string
// means the field was not found.
type Raw struct {
	Name        string
	Rating      string
	ReviewCount string
	Price       string
	Address     string
	Reservation string
	Website     string
	Phone       string
	ShareLink   string
}

// Record normalizes the raw values into a record for the given search.
func (r Raw) Record(category, locality string) record.Restaurant {
	return record.Restaurant{
		Name:            r.Name,
		Rating:          textutil.NormalizeRating(r.Rating),
		Address:         r.Address,
		Locality:        locality,
		Category:        category,
		ReviewCount:     textutil.NormalizeReviewCount(r.ReviewCount),
		PriceRange:      textutil.NormalizePrice(r.Price),
		ReservationLink: record.Optional(r.Reservation),
		WebsiteLink:     record.Optional(r.Website),
		Phone:           record.Optional(r.Phone),
		ShareLink:       record.Optional(r.ShareLink),
	}
}

type Extractor struct {
	Session  browser.Session
	Locators Locators
	// waited after opening the detail view and the route panel, the page
	// renders them asynchronously
	DetailPause time.Duration
	RoutePause  time.Duration
}

func New(session browser.Session) Extractor {
	return Extractor{
		Session:     session,
		Locators:    DefaultLocators,
		DetailPause: 3 * time.Second,
		RoutePause:  5 * time.Second,
	}
}

func (e Extractor) probe(result browser.Element, p Probe) fallback.Strategy[string] {
	name := p.Locator.String()
	if p.Scoped {
		name = "result:" + name
	}
	return fallback.Strategy[string]{
		Name: name,
		Try: func(ctx context.Context) (string, bool, error) {
			var scope browser.Element
			if p.Scoped {
				scope = result
			}
			if p.Attr != "" {
				value, _, err := e.Session.Attr(ctx, p.Locator, p.Attr, scope)
				return value, value != "", err
			}
			value, err := e.Session.Text(ctx, p.Locator, scope)
			return value, value != "", err
		},
	}
}

func (e Extractor) lookup(ctx context.Context, result browser.Element, probes []Probe) (string, error) {
	chain := make(fallback.Chain[string], len(probes))
	for i, p := range probes {
		chain[i] = e.probe(result, p)
	}
	return chain.Value(ctx)
}

func (e Extractor) shareLink(ctx context.Context, result browser.Element) (string, error) {
	chain := make(fallback.Chain[string], len(e.Locators.Share))
	for i, p := range e.Locators.Share {
		chain[i] = fallback.Strategy[string]{
			Name: p.Locator.String(),
			Try: func(ctx context.Context) (string, bool, error) {
				var scope browser.Element
				if p.Scoped {
					scope = result
				}
				carriers, err := e.Session.FindAll(ctx, p.Locator, scope)
				if err != nil {
					return "", false, err
				}
				for _, carrier := range carriers {
					payload, _, err := e.Session.Attr(ctx, browser.Locator{}, p.Attr, carrier)
					if err != nil {
						return "", false, err
					}
					link := DecodeShareLink(payload)
					if link != "" {
						return link, true, nil
					}
				}
				return "", false, nil
			},
		}
	}
	return chain.Value(ctx)
}

var destinationPrefix = regexp.MustCompile(`(?i)^(Desination|Destination)` + textutil.Space + `*[:—\-–]?` + textutil.Space + `*`)

// StripDestination removes the label in front of a route destination.
func StripDestination(label string) string {
	return strings.TrimSpace(destinationPrefix.ReplaceAllString(label, ""))
}

// routeAddress opens the route panel and reads the destination it was
// prefilled with. every failure is logged and yields "".
func (e Extractor) routeAddress(ctx context.Context, result browser.Element) string {
	chain := make(fallback.Chain[browser.Element], len(e.Locators.RouteToggle))
	for i, p := range e.Locators.RouteToggle {
		chain[i] = fallback.Strategy[browser.Element]{
			Name: p.Locator.String(),
			Try: func(ctx context.Context) (browser.Element, bool, error) {
				var scope browser.Element
				if p.Scoped {
					scope = result
				}
				return e.Session.FindFirst(ctx, p.Locator, scope)
			},
		}
	}

	toggle, _, err := chain.Resolve(ctx)
	if err != nil {
		slog.DebugContext(ctx, "no route toggle to recover the address from", "err", err)
		return ""
	}
	err = e.Session.Click(ctx, toggle)
	if err != nil {
		slog.DebugContext(ctx, "failed to open route panel", "err", err)
		return ""
	}
	if browser.Sleep(ctx, e.RoutePause) != nil {
		return ""
	}

	label, _, err := e.Session.Attr(ctx, e.Locators.Destination.Locator, e.Locators.Destination.Attr, nil)
	if err != nil {
		slog.DebugContext(ctx, "failed to read route destination", "err", err)
		return ""
	}
	return StripDestination(label)
}

// Extract opens the detail view of result and reads every field from it.
// missing fields are normal and leave the value empty, an error means the
// detail view could not be opened or the session failed.
func (e Extractor) Extract(ctx context.Context, result browser.Element) (Raw, error) {
	ctx, span := tracer.Start(ctx, "extract:Extract")
	defer span.End()

	err := e.Session.OpenDetail(ctx, result, e.Locators.DetailTarget)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open detail view")
		return Raw{}, fmt.Errorf("failed to open detail view: %w", err)
	}
	err = browser.Sleep(ctx, e.DetailPause)
	if err != nil {
		return Raw{}, err
	}

	var raw Raw
	fields := []struct {
		name   string
		probes []Probe
		out    *string
	}{
		{"name", e.Locators.Name, &raw.Name},
		{"rating", e.Locators.Rating, &raw.Rating},
		{"review_count", e.Locators.ReviewCount, &raw.ReviewCount},
		{"price", e.Locators.Price, &raw.Price},
		{"reservation", e.Locators.Reservation, &raw.Reservation},
		{"website", e.Locators.Website, &raw.Website},
		{"phone", e.Locators.Phone, &raw.Phone},
		{"address", e.Locators.Address, &raw.Address},
	}
	for _, f := range fields {
		*f.out, err = e.lookup(ctx, result, f.probes)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lookup failed")
			return Raw{}, fmt.Errorf("failed to read %s: %w", f.name, err)
		}
	}

	raw.ShareLink, err = e.shareLink(ctx, result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return Raw{}, fmt.Errorf("failed to read share link: %w", err)
	}

	if raw.Address == "" || raw.Name == "" {
		if address := e.routeAddress(ctx, result); address != "" {
			raw.Address = address
			if raw.Name == "" {
				raw.Name = strings.TrimSpace(strings.SplitN(address, ",", 2)[0])
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return Raw{}, err
	}

	span.SetAttributes(
		attribute.String("name", raw.Name),
		attribute.Bool("share_link", raw.ShareLink != ""),
	)
	return raw, nil
}
