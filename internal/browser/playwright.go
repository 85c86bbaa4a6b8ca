package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"
)

// pwPage adapts a playwright page to Page.
type pwPage struct {
	page        playwright.Page
	idleTimeout float64

	requests    atomic.Int64
	dialogs     atomic.Int64
	navigations atomic.Int64
}

func newPWPage(page playwright.Page, idleTimeout time.Duration) *pwPage {
	p := &pwPage{page: page, idleTimeout: float64(idleTimeout.Milliseconds())}

	page.OnRequest(func(playwright.Request) { p.requests.Add(1) })
	page.OnFrameNavigated(func(f playwright.Frame) {
		if f.ParentFrame() == nil {
			p.navigations.Add(1)
		}
	})
	// Dialogs block the page until handled; the agent cannot see them anyway.
	page.OnDialog(func(d playwright.Dialog) {
		p.dialogs.Add(1)
		go func() { _ = d.Dismiss() }()
	})
	return p
}

func (p *pwPage) URL() string { return p.page.URL() }

func (p *pwPage) Title() (string, error) { return p.page.Title() }

func (p *pwPage) Goto(url string) (int, error) {
	resp, err := p.page.Goto(url)
	if err != nil {
		return 0, err
	}
	if resp == nil {
		return 0, nil
	}
	return resp.Status(), nil
}

func (p *pwPage) WaitForIdle() error {
	state := playwright.LoadState(LoadStateNetworkidle)
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   &state,
		Timeout: playwright.Float(p.idleTimeout),
	})
}

func (p *pwPage) Screenshot(path string) ([]byte, error) {
	opts := playwright.PageScreenshotOptions{Type: playwright.ScreenshotTypePng}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		opts.Path = playwright.String(path)
	}
	return p.page.Screenshot(opts)
}

func (p *pwPage) Evaluate(expression string, arg ...any) (any, error) {
	return p.page.Evaluate(expression, arg...)
}

var visibleOnly = playwright.LocatorFilterOptions{Visible: playwright.Bool(true)}

func (p *pwPage) GetByText(text string) Elements {
	return pwElements{p.page.GetByText(text).Filter(visibleOnly)}
}

func (p *pwPage) GetByPlaceholder(text string) Elements {
	return pwElements{p.page.GetByPlaceholder(text).Filter(visibleOnly)}
}

func (p *pwPage) GetByLabel(text string) Elements {
	return pwElements{p.page.GetByLabel(text).Filter(visibleOnly)}
}

func (p *pwPage) Mouse() Mouse       { return pwMouse{p.page.Mouse()} }
func (p *pwPage) Keyboard() Keyboard { return pwKeyboard{p.page.Keyboard()} }

func (p *pwPage) GoBack() error {
	_, err := p.page.GoBack()
	return err
}

func (p *pwPage) ObserveEffects(window time.Duration, do func() error) (Effects, error) {
	startURL := p.page.URL()
	startRequests := p.requests.Load()
	startDialogs := p.dialogs.Load()
	startNavigations := p.navigations.Load()

	// A failed observer install only loses DOM change detection.
	_, _ = p.page.Evaluate(installMutationWatchJS)

	if err := do(); err != nil {
		return Effects{}, err
	}
	time.Sleep(window)

	eff := Effects{
		Navigation:      p.navigations.Load() > startNavigations,
		NetworkActivity: p.requests.Load() > startRequests,
		Dialog:          p.dialogs.Load() > startDialogs,
		URLChanged:      p.page.URL() != startURL,
	}
	if !eff.Navigation {
		if v, err := p.page.Evaluate(readMutationWatchJS); err == nil {
			eff.DOMChange, _ = v.(bool)
		}
	}
	return eff, nil
}

type pwElements struct {
	loc playwright.Locator
}

func (e pwElements) Count() (int, error) { return e.loc.Count() }

func (e pwElements) Nth(i int) Elements { return pwElements{e.loc.Nth(i)} }

func (e pwElements) Or(other Elements) Elements {
	o, ok := other.(pwElements)
	if !ok {
		return e
	}
	return pwElements{e.loc.Or(o.loc)}
}

func (e pwElements) Click() error { return e.loc.Click() }

func (e pwElements) Focus() error { return e.loc.Focus() }

func (e pwElements) Fill(value string) error { return e.loc.Fill(value) }

func (e pwElements) Describe() (string, error) {
	v, err := e.loc.Evaluate(PrettyPrintElementScript, nil)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string from js, got %T", v)
	}
	return s, nil
}

type pwMouse struct {
	m playwright.Mouse
}

func (m pwMouse) Click(x, y float64) error {
	return m.m.Click(x, y, playwright.MouseClickOptions{Button: playwright.MouseButtonLeft})
}

func (m pwMouse) Wheel(dx, dy float64) error { return m.m.Wheel(dx, dy) }

type pwKeyboard struct {
	k playwright.Keyboard
}

func (k pwKeyboard) Type(text string) error { return k.k.Type(text) }

func (k pwKeyboard) Press(key string) error { return k.k.Press(key) }

var _ Page = (*pwPage)(nil)

// errNoPage is returned when the manager has been closed.
var errNoPage = errors.New("page is not initialized")
