package browser

import (
	"errors"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ErrTimeout is returned by page operations that ran out of time.
var ErrTimeout = playwright.ErrTimeout

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Page is the part of a browser tab the agent and its actions work with.
type Page interface {
	URL() string
	Title() (string, error)
	// Goto navigates and returns the HTTP status of the main response
	// (0 when there was none).
	Goto(url string) (int, error)
	WaitForIdle() error
	// Screenshot writes a PNG to path (if not empty) and returns its bytes.
	Screenshot(path string) ([]byte, error)
	Evaluate(expression string, arg ...any) (any, error)

	// Locators only match visible elements.
	GetByText(text string) Elements
	GetByPlaceholder(text string) Elements
	GetByLabel(text string) Elements

	Mouse() Mouse
	Keyboard() Keyboard
	GoBack() error

	// ObserveEffects runs do and watches for visible consequences during window.
	ObserveEffects(window time.Duration, do func() error) (Effects, error)
}

// Elements is a lazily evaluated set of matching elements.
type Elements interface {
	Count() (int, error)
	Nth(i int) Elements
	Or(other Elements) Elements
	Click() error
	Focus() error
	Fill(value string) error
	// Describe pretty-prints the (single) element as short HTML.
	Describe() (string, error)
}

type Mouse interface {
	Click(x, y float64) error
	Wheel(deltaX, deltaY float64) error
}

type Keyboard interface {
	Type(text string) error
	Press(key string) error
}

// Effects records what happened after an input that cannot be verified
// semantically, e.g. a click on raw coordinates.
type Effects struct {
	Navigation      bool
	NetworkActivity bool
	Dialog          bool
	URLChanged      bool
	DOMChange       bool
}

func (e Effects) Any() bool {
	return e.Navigation || e.NetworkActivity || e.Dialog || e.URLChanged || e.DOMChange
}

func (e Effects) String() string {
	var parts []string
	if e.Navigation {
		parts = append(parts, "navigation")
	}
	if e.NetworkActivity {
		parts = append(parts, "network activity")
	}
	if e.Dialog {
		parts = append(parts, "dialog")
	}
	if e.URLChanged {
		parts = append(parts, "url change")
	}
	if e.DOMChange {
		parts = append(parts, "page content change")
	}
	if len(parts) == 0 {
		return "no observable effect"
	}
	return strings.Join(parts, ", ")
}
