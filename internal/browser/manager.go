package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const (
	LoadStateLoad             = "load"
	LoadStateDomcontentloaded = "domcontentloaded"
	LoadStateNetworkidle      = "networkidle"
)

type Options struct {
	Headless bool
	// Channel selects a branded browser, e.g. "chrome". Empty means bundled Chromium.
	Channel        string
	ViewportWidth  int
	ViewportHeight int
	// UserDataDir switches to a persistent context (logins survive restarts).
	UserDataDir string
	// Timeout is the default action and navigation timeout.
	Timeout time.Duration
	// IdleTimeout bounds waiting for network idle after navigation.
	IdleTimeout time.Duration
	SkipInstall bool
}

func DefaultOptions() Options {
	return Options{
		Headless:       false,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Timeout:        30 * time.Second,
		IdleTimeout:    30 * time.Second,
	}
}

// Manager owns one playwright driver, browser context and page.
type Manager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    *pwPage
	log     *zap.Logger
}

func NewManager(opts Options, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if !opts.SkipInstall {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install pw failed: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start pw failed: %w", err)
	}

	m := &Manager{pw: pw, log: log}
	viewport := &playwright.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight}

	var page playwright.Page
	if opts.UserDataDir != "" {
		launch := playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
			Viewport: viewport,
			Args:     []string{"--disable-blink-features=AutomationControlled"},
		}
		if opts.Channel != "" {
			launch.Channel = playwright.String(opts.Channel)
		}
		m.context, err = pw.Chromium.LaunchPersistentContext(opts.UserDataDir, launch)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("launch persistent context: %w", err)
		}
		if pages := m.context.Pages(); len(pages) > 0 {
			page = pages[0]
		}
	} else {
		launch := playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
			Args:     []string{"--disable-blink-features=AutomationControlled"},
		}
		if opts.Channel != "" {
			launch.Channel = playwright.String(opts.Channel)
		}
		m.browser, err = pw.Chromium.Launch(launch)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		m.context, err = m.browser.NewContext(playwright.BrowserNewContextOptions{Viewport: viewport})
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("new context: %w", err)
		}
	}

	if page == nil {
		page, err = m.context.NewPage()
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	if opts.Timeout > 0 {
		ms := float64(opts.Timeout.Milliseconds())
		page.SetDefaultTimeout(ms)
		page.SetDefaultNavigationTimeout(ms)
	}

	m.page = newPWPage(page, opts.IdleTimeout)
	log.Debug("browser started",
		zap.Bool("headless", opts.Headless),
		zap.Bool("persistent", opts.UserDataDir != ""),
		zap.Int("viewport_width", opts.ViewportWidth),
		zap.Int("viewport_height", opts.ViewportHeight),
	)
	return m, nil
}

// Page returns the managed page, or nil after Close.
func (m *Manager) Page() Page {
	if m == nil || m.page == nil {
		return nil
	}
	return m.page
}

func (m *Manager) LoadURL(url string) error {
	if m.Page() == nil {
		return errNoPage
	}
	return LoadURL(m.page, url, m.log)
}

func (m *Manager) CleanPage() {
	if m.Page() == nil {
		return
	}
	CleanPage(m.page, m.log)
}

func (m *Manager) SaveScreenshot(path string) ([]byte, error) {
	if m.Page() == nil {
		return nil, errNoPage
	}
	return m.page.Screenshot(path)
}

func (m *Manager) Metadata() (Metadata, error) {
	if m.Page() == nil {
		return Metadata{}, errNoPage
	}
	return GetMetadata(m.page)
}

func (m *Manager) Close() {
	if m.context != nil {
		_ = m.context.Close()
	}
	if m.browser != nil {
		_ = m.browser.Close()
	}
	if m.pw != nil {
		_ = m.pw.Stop()
	}
	m.page = nil
}
