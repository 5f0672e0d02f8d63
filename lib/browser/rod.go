package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/browser")

type RodOptions struct {
	Headless bool
	// path to a chrome binary, rod downloads one when empty
	Bin       string
	UserAgent string
}

// RodSession drives a single chrome tab.
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	// the frame lookups run against, nil means the top-level page
	frame *rod.Page

	closeOnce sync.Once
	closeErr  error
}

type rodElement struct {
	el *rod.Element
}

func (e rodElement) Describe() string {
	return e.el.String()
}

func NewRodSession(ctx context.Context, opts RodOptions) (*RodSession, error) {
	ctx, span := tracer.Start(ctx, "NewRodSession")
	defer span.End()

	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("start-maximized")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	controlUrl, err := l.Context(ctx).Launch()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlUrl)
	err = browser.Connect()
	if err != nil {
		l.Kill()
		span.RecordError(err)
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		l.Kill()
		span.RecordError(err)
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if opts.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent})
		if err != nil {
			slog.WarnContext(ctx, "failed to set user agent", "err", err)
		}
	}

	slog.DebugContext(ctx, "browser session started", "control_url", controlUrl, "headless", opts.Headless)

	return &RodSession{
		launcher: l,
		browser:  browser,
		page:     page,
	}, nil
}

func (s *RodSession) view(ctx context.Context) *rod.Page {
	if s.frame != nil {
		return s.frame.Context(ctx)
	}
	return s.page.Context(ctx)
}

func toRod(el Element) (*rod.Element, error) {
	e, ok := el.(rodElement)
	if !ok {
		return nil, fmt.Errorf("rod: foreign element %T", el)
	}
	return e.el, nil
}

func (s *RodSession) Navigate(ctx context.Context, url string) error {
	s.frame = nil
	page := s.page.Context(ctx)
	err := page.Navigate(url)
	if err != nil {
		return err
	}
	return page.WaitLoad()
}

func (s *RodSession) WaitPresent(ctx context.Context, loc Locator, timeout time.Duration) (Element, error) {
	page := s.view(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	var el *rod.Element
	var err error
	if loc.Text != "" {
		el, err = page.ElementR(loc.Selector, loc.Text)
	} else {
		el, err = page.Element(loc.Selector)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	if err != nil {
		return nil, err
	}
	return rodElement{el: el}, nil
}

func (s *RodSession) FindAll(ctx context.Context, loc Locator, scope Element) ([]Element, error) {
	var found rod.Elements
	var err error
	if scope != nil {
		parent, err := toRod(scope)
		if err != nil {
			return nil, err
		}
		parent = parent.Context(ctx)
		if loc.IsZero() {
			return []Element{rodElement{el: parent}}, nil
		}
		found, err = parent.Elements(loc.Selector)
		if err != nil {
			return nil, err
		}
	} else {
		found, err = s.view(ctx).Elements(loc.Selector)
		if err != nil {
			return nil, err
		}
	}

	re, err := loc.matcher()
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(found))
	for _, el := range found {
		if re != nil {
			text, err := el.Text()
			if err != nil || !re.MatchString(strings.TrimSpace(text)) {
				continue
			}
		}
		out = append(out, rodElement{el: el})
	}
	return out, nil
}

func (s *RodSession) FindFirst(ctx context.Context, loc Locator, scope Element) (Element, bool, error) {
	found, err := s.FindAll(ctx, loc, scope)
	if err != nil || len(found) == 0 {
		return nil, false, err
	}
	return found[0], true, nil
}

func (s *RodSession) Text(ctx context.Context, loc Locator, scope Element) (string, error) {
	el, ok, err := s.FindFirst(ctx, loc, scope)
	if err != nil || !ok {
		return "", err
	}
	e, _ := toRod(el)
	text, err := e.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *RodSession) Attr(ctx context.Context, loc Locator, name string, scope Element) (string, bool, error) {
	el, ok, err := s.FindFirst(ctx, loc, scope)
	if err != nil || !ok {
		return "", false, err
	}
	e, _ := toRod(el)
	value, err := e.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return strings.TrimSpace(*value), true, nil
}

// clicks through javascript so overlays sitting on top of the element
// cannot intercept the click.
func (s *RodSession) Click(ctx context.Context, el Element) error {
	e, err := toRod(el)
	if err != nil {
		return err
	}
	e = e.Context(ctx)
	err = e.ScrollIntoView()
	if err != nil {
		return err
	}
	_, err = e.Eval(`() => this.click()`)
	return err
}

func (s *RodSession) Submit(ctx context.Context, loc Locator, text string) error {
	el, ok, err := s.FindFirst(ctx, loc, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	e, _ := toRod(el)
	e = e.Context(ctx)
	err = e.Input(text)
	if err != nil {
		return err
	}
	return e.Type(input.Enter)
}

func (s *RodSession) Back(ctx context.Context) error {
	s.frame = nil
	return s.page.Context(ctx).NavigateBack()
}

func (s *RodSession) SwitchFrame(ctx context.Context, index int) error {
	if index == DefaultFrame {
		s.frame = nil
		return nil
	}
	frames, err := s.page.Context(ctx).Elements("iframe")
	if err != nil {
		return err
	}
	if index < 0 || index >= len(frames) {
		return fmt.Errorf("%w: frame %d", ErrNotFound, index)
	}
	frame, err := frames[index].Frame()
	if err != nil {
		return err
	}
	s.frame = frame
	return nil
}

func (s *RodSession) OpenDetail(ctx context.Context, el Element, target Locator) error {
	found, ok, err := s.FindFirst(ctx, target, el)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, target)
	}
	return s.Click(ctx, found)
}

// Close is safe to call more than once, only the first call releases
// the browser.
func (s *RodSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.browser.Close()
		s.launcher.Kill()
	})
	return s.closeErr
}
