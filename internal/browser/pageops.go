package browser

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// ErrLoadURL wraps every failure to open the task's start page.
var ErrLoadURL = errors.New("could not load the URL")

// failingStatuses are HTTP statuses that mean the page is unusable.
var failingStatuses = []int{400, 401, 403, 404, 408, 429, 500, 502, 503, 504}

// LoadURL navigates to url and waits for the network to settle. A network
// idle timeout after a usable response is tolerated.
func LoadURL(p Page, url string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	status, err := p.Goto(url)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadURL, err)
	}
	if slices.Contains(failingStatuses, status) {
		return fmt.Errorf("%w: page returned status code %d", ErrLoadURL, status)
	}

	if err := p.WaitForIdle(); err != nil {
		if !IsTimeout(err) {
			return fmt.Errorf("%w: %w", ErrLoadURL, err)
		}
		log.Warn("page did not indicate that it was loaded, proceeding anyway", zap.String("url", url))
	}
	return nil
}

// CleanPage removes link targets so nothing opens in a tab the agent cannot
// see. Failures are logged and otherwise ignored.
func CleanPage(p Page, log *zap.Logger) {
	if _, err := p.Evaluate(RemoveLinkTargetsScript); err != nil && log != nil {
		log.Warn("page cleanup failed, proceeding anyway", zap.Error(err))
	}
}

const unknownFocusedElement = "Unable to determine focused element."

type Metadata struct {
	Title          string `json:"title"`
	URL            string `json:"url"`
	FocusedElement string `json:"focused_element,omitempty"`
}

func (m Metadata) String() string {
	focused := m.FocusedElement
	if focused == "" {
		focused = "none"
	}
	return fmt.Sprintf("title: %s\nurl: %s\nfocused element: %s", m.Title, m.URL, focused)
}

// GetMetadata collects title, URL and the focused element. A navigation in
// progress can destroy the execution context; that only loses the focused
// element.
func GetMetadata(p Page) (Metadata, error) {
	title, err := p.Title()
	if err != nil {
		return Metadata{}, fmt.Errorf("read title: %w", err)
	}

	md := Metadata{Title: title, URL: p.URL()}
	v, err := p.Evaluate(FocusedElementScript)
	switch {
	case err != nil:
		md.FocusedElement = unknownFocusedElement
	case v != nil:
		md.FocusedElement, _ = v.(string)
	}
	return md, nil
}

// EvaluateBool runs a predicate script and requires a boolean result.
func EvaluateBool(p Page, js string) (bool, error) {
	v, err := p.Evaluate(js)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool from js, got %T", v)
	}
	return b, nil
}

// EvaluateFloat runs a script returning a number. JSON numbers may arrive as
// int or float64 depending on the driver.
func EvaluateFloat(p Page, js string) (float64, error) {
	v, err := p.Evaluate(js)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number from js, got %T", v)
	}
}

func HasFocusedElement(p Page) (bool, error) { return EvaluateBool(p, HasFocusedElementScript) }

func FocusedHasValue(p Page) (bool, error) { return EvaluateBool(p, FocusedHasValueScript) }

func ClearFocusedValue(p Page) error {
	_, err := p.Evaluate(ClearFocusedValueScript)
	return err
}

func ScrollOffset(p Page) (float64, error) { return EvaluateFloat(p, ScrollOffsetScript) }

func DevicePixelRatio(p Page) (float64, error) { return EvaluateFloat(p, DevicePixelRatioScript) }
