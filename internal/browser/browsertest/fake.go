// Package browsertest provides an in-memory browser.Page for tests.
package browsertest

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nbenliogludev/go-web-agent/internal/browser"
)

// Element is one fake DOM element. Text, Placeholder and Label are matched
// case-insensitively by substring, as playwright does for string queries.
type Element struct {
	Text        string
	Placeholder string
	Label       string
	HTML        string

	ClickErr error
	Clicks   int
	Focuses  int
	Value    string
}

type Page struct {
	mu sync.Mutex

	CurrentURL string
	PageTitle  string
	TitleErr   error

	// GotoStatus maps URLs to response statuses; missing entries yield 200.
	GotoStatus map[string]int
	GotoErr    error
	IdleErr    error
	Visits     []string
	Backs      int

	ShotData []byte
	ShotErr  error
	Shots    []string

	Elements []*Element

	Focused        bool
	FocusedValue   string
	FocusedHTML    string
	FocusedEvalErr error
	ScrollY        float64
	MaxScrollY     float64
	PixelRatio     float64
	Cleaned        int
	EvalErr        error

	Typed   []string
	Pressed []string
	Clicks  [][2]float64
	// Effects is reported by ObserveEffects.
	Effects browser.Effects
}

func NewPage(url string) *Page {
	return &Page{
		CurrentURL: url,
		PageTitle:  "Test",
		ShotData:   []byte{0x89, 'P', 'N', 'G'},
		MaxScrollY: 5000,
		PixelRatio: 1,
	}
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL
}

func (p *Page) Title() (string, error) {
	return p.PageTitle, p.TitleErr
}

func (p *Page) Goto(url string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Visits = append(p.Visits, url)
	if p.GotoErr != nil {
		return 0, p.GotoErr
	}
	p.CurrentURL = url
	if s, ok := p.GotoStatus[url]; ok {
		return s, nil
	}
	return 200, nil
}

func (p *Page) WaitForIdle() error { return p.IdleErr }

func (p *Page) Screenshot(path string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Shots = append(p.Shots, path)
	if p.ShotErr != nil {
		return nil, p.ShotErr
	}
	return p.ShotData, nil
}

func (p *Page) Evaluate(expression string, _ ...any) (any, error) {
	if p.EvalErr != nil {
		return nil, p.EvalErr
	}
	switch expression {
	case browser.RemoveLinkTargetsScript:
		p.Cleaned++
		return nil, nil
	case browser.HasFocusedElementScript:
		return p.Focused, nil
	case browser.FocusedHasValueScript:
		return p.Focused && p.FocusedValue != "", nil
	case browser.ClearFocusedValueScript:
		p.FocusedValue = ""
		return nil, nil
	case browser.ScrollOffsetScript:
		return p.ScrollY, nil
	case browser.DevicePixelRatioScript:
		return p.PixelRatio, nil
	case browser.FocusedElementScript:
		if p.FocusedEvalErr != nil {
			return nil, p.FocusedEvalErr
		}
		if p.FocusedHTML == "" {
			return nil, nil
		}
		return p.FocusedHTML, nil
	}
	return nil, fmt.Errorf("browsertest: unexpected script %q", expression)
}

func (p *Page) query(text string, field func(*Element) string) browser.Elements {
	q := strings.ToLower(text)
	var out []*Element
	for _, el := range p.Elements {
		v := strings.ToLower(field(el))
		if v != "" && q != "" && strings.Contains(v, q) {
			out = append(out, el)
		}
	}
	return &Set{els: out}
}

func (p *Page) GetByText(text string) browser.Elements {
	return p.query(text, func(e *Element) string { return e.Text })
}

func (p *Page) GetByPlaceholder(text string) browser.Elements {
	return p.query(text, func(e *Element) string { return e.Placeholder })
}

func (p *Page) GetByLabel(text string) browser.Elements {
	return p.query(text, func(e *Element) string { return e.Label })
}

func (p *Page) Mouse() browser.Mouse       { return mouse{p} }
func (p *Page) Keyboard() browser.Keyboard { return keyboard{p} }

func (p *Page) GoBack() error {
	p.Backs++
	return nil
}

func (p *Page) ObserveEffects(_ time.Duration, do func() error) (browser.Effects, error) {
	if err := do(); err != nil {
		return browser.Effects{}, err
	}
	return p.Effects, nil
}

type mouse struct{ p *Page }

func (m mouse) Click(x, y float64) error {
	m.p.Clicks = append(m.p.Clicks, [2]float64{x, y})
	return nil
}

func (m mouse) Wheel(_, dy float64) error {
	m.p.ScrollY = min(max(m.p.ScrollY+dy, 0), m.p.MaxScrollY)
	return nil
}

type keyboard struct{ p *Page }

// Type appends to the focused element's value, like typing into an input.
func (k keyboard) Type(text string) error {
	k.p.Typed = append(k.p.Typed, text)
	if k.p.Focused {
		k.p.FocusedValue += text
	}
	return nil
}

func (k keyboard) Press(key string) error {
	k.p.Pressed = append(k.p.Pressed, key)
	return nil
}

// Set is a fake element set. Single-element operations follow playwright's
// strict mode and fail unless exactly one element matches.
type Set struct {
	els []*Element
}

func (s *Set) Count() (int, error) { return len(s.els), nil }

func (s *Set) Nth(i int) browser.Elements {
	if i < 0 || i >= len(s.els) {
		return &Set{}
	}
	return &Set{els: []*Element{s.els[i]}}
}

func (s *Set) Or(other browser.Elements) browser.Elements {
	o, ok := other.(*Set)
	if !ok {
		return s
	}
	out := append([]*Element(nil), s.els...)
	for _, el := range o.els {
		dup := false
		for _, have := range out {
			if have == el {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, el)
		}
	}
	return &Set{els: out}
}

func (s *Set) single() (*Element, error) {
	switch len(s.els) {
	case 0:
		return nil, browser.ErrTimeout
	case 1:
		return s.els[0], nil
	default:
		return nil, errors.New("strict mode violation: locator resolved to multiple elements")
	}
}

func (s *Set) Click() error {
	el, err := s.single()
	if err != nil {
		return err
	}
	if el.ClickErr != nil {
		return el.ClickErr
	}
	el.Clicks++
	return nil
}

func (s *Set) Focus() error {
	el, err := s.single()
	if err != nil {
		return err
	}
	el.Focuses++
	return nil
}

func (s *Set) Fill(value string) error {
	el, err := s.single()
	if err != nil {
		return err
	}
	el.Value = value
	return nil
}

func (s *Set) Describe() (string, error) {
	el, err := s.single()
	if err != nil {
		return "", err
	}
	return el.HTML, nil
}

var _ browser.Page = (*Page)(nil)
