package browsertest

import (
	"sync"

	"github.com/nbenliogludev/go-web-agent/internal/browser"
)

// Browser wraps a fake Page with the session operations of browser.Manager.
type Browser struct {
	mu sync.Mutex

	Fake    *Page
	Loads   []string
	Closed  bool
	LoadErr error
}

func NewBrowser(url string) *Browser {
	return &Browser{Fake: NewPage(url)}
}

func (b *Browser) Page() browser.Page { return b.Fake }

func (b *Browser) LoadURL(url string) error {
	b.mu.Lock()
	b.Loads = append(b.Loads, url)
	err := b.LoadErr
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return browser.LoadURL(b.Fake, url, nil)
}

func (b *Browser) CleanPage() { browser.CleanPage(b.Fake, nil) }

func (b *Browser) SaveScreenshot(path string) ([]byte, error) { return b.Fake.Screenshot(path) }

func (b *Browser) Metadata() (browser.Metadata, error) { return browser.GetMetadata(b.Fake) }

func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
}
