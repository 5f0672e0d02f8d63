package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// StaticSession serves a fixed set of html pages keyed by url.
//
// navigation is driven by markup: clicking (or submitting into) an element
// whose closest ancestor carries data-goto="<url>" loads that page, a "{q}"
// inside the target is replaced by the submitted text. iframes are read
// from their srcdoc attribute.
type StaticSession struct {
	pages   map[string]string
	history []*goquery.Document
	frame   *goquery.Document
	closed  bool

	// every action performed, in order, e.g. "navigate <url>" or "click <element>"
	Trail []string
}

type staticElement struct {
	sel *goquery.Selection
}

func (e staticElement) Describe() string {
	node := e.sel.Get(0)
	if node == nil {
		return "<nil>"
	}
	desc := node.Data
	if class, ok := e.sel.Attr("class"); ok {
		desc += "." + strings.Join(strings.Fields(class), ".")
	}
	return desc
}

func NewStaticSession(pages map[string]string) *StaticSession {
	return &StaticSession{pages: pages}
}

// LoadStaticSession reads every .html file in dir, the page url is the file
// name without its extension with "__" standing in for "/".
// a file named "index.html" is served for url.
func LoadStaticSession(dir, url string) (*StaticSession, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	pages := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".html" {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		key := strings.TrimSuffix(e.Name(), ".html")
		if key == "index" {
			key = url
		} else {
			key = strings.ReplaceAll(key, "__", "/")
		}
		pages[key] = string(contents)
	}
	return NewStaticSession(pages), nil
}

func (s *StaticSession) record(format string, args ...any) {
	s.Trail = append(s.Trail, fmt.Sprintf(format, args...))
}

func (s *StaticSession) current() (*goquery.Document, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if len(s.history) == 0 {
		return nil, fmt.Errorf("static: no page loaded")
	}
	if s.frame != nil {
		return s.frame, nil
	}
	return s.history[len(s.history)-1], nil
}

func (s *StaticSession) load(url string) error {
	page, ok := s.pages[url]
	if !ok {
		return fmt.Errorf("static: no page for '%s'", url)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return err
	}
	s.history = append(s.history, doc)
	s.frame = nil
	return nil
}

func (s *StaticSession) find(loc Locator, scope Element) ([]Element, error) {
	doc, err := s.current()
	if err != nil {
		return nil, err
	}
	base := doc.Selection
	if scope != nil {
		el, ok := scope.(staticElement)
		if !ok {
			return nil, fmt.Errorf("static: foreign element %T", scope)
		}
		if loc.IsZero() {
			return []Element{el}, nil
		}
		base = el.sel
	}
	re, err := loc.matcher()
	if err != nil {
		return nil, err
	}

	var out []Element
	base.Find(loc.Selector).Each(func(_ int, sel *goquery.Selection) {
		if re != nil && !re.MatchString(strings.TrimSpace(sel.Text())) {
			return
		}
		out = append(out, staticElement{sel: sel})
	})
	return out, nil
}

func (s *StaticSession) Navigate(ctx context.Context, url string) error {
	if s.closed {
		return ErrClosed
	}
	s.record("navigate %s", url)
	return s.load(url)
}

// pages are complete as soon as they are loaded so there is nothing to wait for.
func (s *StaticSession) WaitPresent(ctx context.Context, loc Locator, timeout time.Duration) (Element, error) {
	found, err := s.find(loc, nil)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return found[0], nil
}

func (s *StaticSession) FindAll(ctx context.Context, loc Locator, scope Element) ([]Element, error) {
	return s.find(loc, scope)
}

func (s *StaticSession) FindFirst(ctx context.Context, loc Locator, scope Element) (Element, bool, error) {
	found, err := s.find(loc, scope)
	if err != nil || len(found) == 0 {
		return nil, false, err
	}
	return found[0], true, nil
}

func (s *StaticSession) Text(ctx context.Context, loc Locator, scope Element) (string, error) {
	el, ok, err := s.FindFirst(ctx, loc, scope)
	if err != nil || !ok {
		return "", err
	}
	return strings.TrimSpace(el.(staticElement).sel.Text()), nil
}

func (s *StaticSession) Attr(ctx context.Context, loc Locator, name string, scope Element) (string, bool, error) {
	el, ok, err := s.FindFirst(ctx, loc, scope)
	if err != nil || !ok {
		return "", false, err
	}
	value, ok := el.(staticElement).sel.Attr(name)
	return strings.TrimSpace(value), ok, nil
}

func (s *StaticSession) follow(sel *goquery.Selection, query string) error {
	target, ok := sel.Closest("[data-goto]").Attr("data-goto")
	if !ok {
		return nil
	}
	return s.load(strings.ReplaceAll(target, "{q}", query))
}

func (s *StaticSession) Click(ctx context.Context, el Element) error {
	if s.closed {
		return ErrClosed
	}
	e, ok := el.(staticElement)
	if !ok {
		return fmt.Errorf("static: foreign element %T", el)
	}
	s.record("click %s", e.Describe())
	return s.follow(e.sel, "")
}

func (s *StaticSession) Submit(ctx context.Context, loc Locator, text string) error {
	el, ok, err := s.FindFirst(ctx, loc, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	s.record("submit %s", text)
	return s.follow(el.(staticElement).sel, text)
}

func (s *StaticSession) Back(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if len(s.history) < 2 {
		return fmt.Errorf("static: no previous page")
	}
	s.record("back")
	s.history = s.history[:len(s.history)-1]
	s.frame = nil
	return nil
}

func (s *StaticSession) SwitchFrame(ctx context.Context, index int) error {
	if s.closed {
		return ErrClosed
	}
	if index == DefaultFrame {
		s.frame = nil
		return nil
	}
	if len(s.history) == 0 {
		return fmt.Errorf("static: no page loaded")
	}
	frames := s.history[len(s.history)-1].Find("iframe")
	if index < 0 || index >= frames.Length() {
		return fmt.Errorf("%w: frame %d", ErrNotFound, index)
	}
	srcdoc, _ := frames.Eq(index).Attr("srcdoc")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(srcdoc))
	if err != nil {
		return err
	}
	s.record("frame %d", index)
	s.frame = doc
	return nil
}

func (s *StaticSession) OpenDetail(ctx context.Context, el Element, target Locator) error {
	found, err := s.find(target, el)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, target)
	}
	return s.Click(ctx, found[0])
}

func (s *StaticSession) Close() error {
	if s.closed {
		return nil
	}
	s.record("close")
	s.closed = true
	return nil
}
