package action

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nbenliogludev/go-web-agent/internal/browser"
)

var (
	ErrDuplicateName       = errors.New("duplicate action name")
	ErrNoApplicableActions = errors.New("no applicable actions")
)

// Registry is an ordered set of action variants. Order is prompt order.
type Registry struct {
	actions []*Descriptor
	byName  map[string]*Descriptor
}

func NewRegistry(descs ...*Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Descriptor)}
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewDefault returns a registry with the default variants. The list is
// static, so a failure here is a programming error.
func NewDefault() *Registry {
	r, err := NewRegistry(Defaults()...)
	if err != nil {
		panic(fmt.Sprintf("default actions: %v", err))
	}
	return r
}

func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Tag == "" {
		return errors.New("action descriptor needs a tag")
	}
	if d.Run == nil {
		return fmt.Errorf("action %s has no Run function", d.Tag)
	}
	name := d.Name()
	if prev, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %s (%s and %s)", ErrDuplicateName, name, prev.Tag, d.Tag)
	}
	seen := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if p.Name == "" || seen[p.Name] {
			return fmt.Errorf("action %s: invalid or repeated parameter name %q", name, p.Name)
		}
		seen[p.Name] = true
	}
	for _, pattern := range d.Domains {
		if err := ValidateDomainPattern(pattern); err != nil {
			return fmt.Errorf("action %s: %w", name, err)
		}
	}

	r.actions = append(r.actions, d)
	r.byName[name] = d
	return nil
}

// Actions returns all registered variants in registration order.
func (r *Registry) Actions() []*Descriptor {
	return append([]*Descriptor(nil), r.actions...)
}

func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Applicable returns the variants that may be offered on page. An empty
// result means the registry is misconfigured.
func (r *Registry) Applicable(page browser.Page) ([]*Descriptor, error) {
	var out []*Descriptor
	for _, d := range r.actions {
		ok, err := d.Applicable(page)
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", d.Name(), err)
		}
		if ok {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoApplicableActions, page.URL())
	}
	return out, nil
}

// Render lists variant definitions one per line.
func Render(descs []*Descriptor) string {
	lines := make([]string, len(descs))
	for i, d := range descs {
		lines[i] = d.Definition()
	}
	return strings.Join(lines, "\n")
}

func (r *Registry) ApplicableString(page browser.Page) (string, error) {
	descs, err := r.Applicable(page)
	if err != nil {
		return "", err
	}
	return Render(descs), nil
}

// Parse resolves input against every registered variant.
func (r *Registry) Parse(input string) (Action, error) {
	return Parse(input, r.actions)
}
