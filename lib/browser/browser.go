package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// the core never renders, fetches or parses pages itself, it only asks a
// Session to evaluate locators against whatever the session is currently
// showing and interprets the results.

var (
	// returned by the waiting / targeting operations when the target is absent,
	// plain lookups never return it, they return empty values instead.
	ErrNotFound = errors.New("browser: element not found")
	ErrClosed   = errors.New("browser: session closed")
)

// passed to SwitchFrame to return to the top-level document.
const DefaultFrame = -1

// Locator is a CSS selector with an optional regular expression that the
// trimmed text of the element must match.
type Locator struct {
	Selector string
	Text     string
}

func (l Locator) IsZero() bool {
	return l.Selector == "" && l.Text == ""
}

func (l Locator) String() string {
	if l.Text == "" {
		return l.Selector
	}
	return fmt.Sprintf("%s /%s/", l.Selector, l.Text)
}

func (l Locator) matcher() (*regexp.Regexp, error) {
	if l.Text == "" {
		return nil, nil
	}
	re, err := regexp.Compile(l.Text)
	if err != nil {
		return nil, fmt.Errorf("invalid text pattern in locator '%s': %w", l, err)
	}
	return re, nil
}

// Element is an opaque handle to a node, it is only meaningful to the
// session that produced it and only until that session navigates away.
type Element interface {
	Describe() string
}

// Session is a page-interaction provider.
//
// lookups (FindAll, FindFirst, Text, Attr) never fail on zero matches, an
// error from them means the session itself is no longer usable.
// scope may be nil to search the whole current view.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// blocks until an element matching loc exists or timeout elapses (ErrNotFound)
	WaitPresent(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)
	FindAll(ctx context.Context, loc Locator, scope Element) ([]Element, error)
	FindFirst(ctx context.Context, loc Locator, scope Element) (Element, bool, error)
	// a zero loc with a non-nil scope reads the scope itself
	Text(ctx context.Context, loc Locator, scope Element) (string, error)
	Attr(ctx context.Context, loc Locator, name string, scope Element) (string, bool, error)
	Click(ctx context.Context, el Element) error
	// types text into the first element matching loc and submits it
	Submit(ctx context.Context, loc Locator, text string) error
	Back(ctx context.Context) error
	// index is the position of the iframe in the top-level document or DefaultFrame
	SwitchFrame(ctx context.Context, index int) error
	// scrolls the first match of target inside el into view and clicks it,
	// a zero target clicks el itself
	OpenDetail(ctx context.Context, el Element, target Locator) error
	Close() error
}

type Acquirer func(ctx context.Context) (Session, error)

// Use acquires a session, hands it to fn and closes it exactly once
// regardless of how fn returns.
func Use(ctx context.Context, acquire Acquirer, fn func(ctx context.Context, s Session) error) (err error) {
	session, err := acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire session: %w", err)
	}
	defer func() {
		closeErr := session.Close()
		if closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close session: %w", closeErr))
		}
	}()
	return fn(ctx, session)
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
