// Package action declares the browser actions the model can choose from, the
// registry that offers them per page, and the parser that turns the model's
// call strings back into executable actions.
package action

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/nbenliogludev/go-web-agent/internal/browser"
	"github.com/nbenliogludev/go-web-agent/internal/task"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusUnknown Status = "unknown"
	StatusInfo    Status = "info"
	StatusAbort   Status = "abort"
	StatusFinish  Status = "finish"
)

// Label is the capitalized status used in the history transcript.
func (s Status) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

func (s Status) Terminal() bool {
	return s == StatusAbort || s == StatusFinish
}

// Result is the outcome of one Execute call.
type Result struct {
	Status  Status
	Message string
	// Data carries structured output, e.g. the final answer of finish.
	Data map[string]string
}

func Success(msg string) Result { return Result{Status: StatusSuccess, Message: msg} }
func Failure(msg string) Result { return Result{Status: StatusFailure, Message: msg} }
func Unknown(msg string) Result { return Result{Status: StatusUnknown, Message: msg} }
func Info(msg string) Result    { return Result{Status: StatusInfo, Message: msg} }

// Context is what an action can touch while executing.
type Context struct {
	Page browser.Page
	Task task.Task
}

type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindBool:
		return "boolean"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type Param struct {
	Name        string
	Kind        Kind
	Description string
	// Default is used when the call omits the parameter. A nil Default makes
	// the parameter required.
	Default any
}

func (p Param) Required() bool { return p.Default == nil }

// Descriptor describes one action variant. Applicability is a property of
// the variant, so it can be decided before the model picks an instance.
type Descriptor struct {
	// Tag is the CamelCase variant name; the model sees Name(Tag).
	Tag         string
	Description string
	Params      []Param
	// Domains restricts the variant to matching hosts. Nil means any host; a
	// non-nil empty list matches nothing.
	Domains []string
	// PageFilter further restricts applicability on live page state.
	PageFilter func(browser.Page) (bool, error)
	Run        func(Context, Args) Result
}

func (d *Descriptor) Name() string { return Name(d.Tag) }

func (d *Descriptor) param(name string) (Param, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Applicable reports whether the variant may be offered on page. Only an
// invalid domain pattern is an error; a page whose URL cannot be parsed or a
// failing page filter just makes the variant unavailable.
func (d *Descriptor) Applicable(page browser.Page) (bool, error) {
	if d.Domains != nil {
		host, err := hostOf(page.URL())
		if err != nil {
			return false, nil
		}
		matched := false
		for _, pattern := range d.Domains {
			ok, err := MatchDomain(host, pattern)
			if err != nil {
				return false, err
			}
			if ok {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
	}
	if d.PageFilter != nil {
		ok, err := d.PageFilter(page)
		if err != nil || !ok {
			return false, nil
		}
	}
	return true, nil
}

// Signature renders the variant for the prompt, e.g. click_by_text('text').
func (d *Descriptor) Signature() string {
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = "'" + p.Name + "'"
	}
	return d.Name() + "(" + strings.Join(names, ", ") + ")"
}

// Definition is the prompt line for the variant: signature and description.
func (d *Descriptor) Definition() string {
	return d.Signature() + " - " + d.Description
}

// New builds an instance from already typed arguments, filling defaults.
func (d *Descriptor) New(args Args) (Action, error) {
	out := make(Args, len(d.Params))
	for name, v := range args {
		p, ok := d.param(name)
		if !ok {
			return Action{}, fmt.Errorf("unexpected argument %q for %s", name, d.Name())
		}
		cv, err := coerce(p, v)
		if err != nil {
			return Action{}, err
		}
		out[name] = cv
	}
	for _, p := range d.Params {
		if _, ok := out[p.Name]; ok {
			continue
		}
		if p.Required() {
			return Action{}, fmt.Errorf("missing required argument %q for %s", p.Name, d.Name())
		}
		out[p.Name] = p.Default
	}
	return Action{desc: d, args: out}, nil
}

// Args holds typed argument values: string, int or bool.
type Args map[string]any

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Args) Int(name string) int {
	n, _ := a[name].(int)
	return n
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Action is one immutable instance chosen by the model.
type Action struct {
	desc *Descriptor
	args Args
}

func (a Action) Name() string { return a.desc.Name() }

func (a Action) Descriptor() *Descriptor { return a.desc }

// Args returns a copy of the arguments.
func (a Action) Args() Args { return maps.Clone(a.args) }

func (a Action) IsZero() bool { return a.desc == nil }

func (a Action) Execute(ctx Context) Result {
	return a.desc.Run(ctx, maps.Clone(a.args))
}

// String renders the instance as a call the parser accepts, e.g.
// click_by_text_ith(text='Buy', ith=1).
func (a Action) String() string {
	if a.desc == nil {
		return ""
	}
	parts := make([]string, 0, len(a.desc.Params))
	for _, p := range a.desc.Params {
		parts = append(parts, p.Name+"="+formatLiteral(a.args[p.Name]))
	}
	return a.desc.Name() + "(" + strings.Join(parts, ", ") + ")"
}

func formatLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return quote(x)
	case int:
		return strconv.Itoa(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return quote(fmt.Sprint(x))
	}
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\', '\'':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
