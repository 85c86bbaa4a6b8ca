package action

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseError is returned for any call string that cannot be turned into an
// action. The agent treats it as recoverable and re-prompts.
type ParseError struct {
	Input string
	Cause string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse action string %q: %s", e.Input, e.Cause)
}

// Parse turns a single call expression such as click_by_text('Log in') or
// click_by_text_ith(text="Buy", ith=1) into an action of one of candidates.
// Only literal arguments are accepted: quoted strings, integers, floats and
// the booleans True/False.
func Parse(input string, candidates []*Descriptor) (Action, error) {
	fail := func(format string, args ...any) (Action, error) {
		return Action{}, &ParseError{Input: input, Cause: fmt.Sprintf(format, args...)}
	}

	s := strings.TrimSpace(input)
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)
	if s == "" {
		return fail("action string is empty")
	}
	if !strings.Contains(s, "(") {
		s += "()"
	}

	toks, err := tokenize(s)
	if err != nil {
		return fail("%v", err)
	}
	call, err := (&callParser{toks: toks}).parse()
	if err != nil {
		return fail("%v", err)
	}

	var desc *Descriptor
	for _, d := range candidates {
		if d.Name() == call.name {
			desc = d
			break
		}
	}
	if desc == nil {
		return fail("action type not found: %s", call.name)
	}

	if len(call.positional) > len(desc.Params) {
		return fail("too many positional arguments: expected %d, got %d", len(desc.Params), len(call.positional))
	}

	args := make(Args, len(call.positional)+len(call.keywords))
	for i, v := range call.positional {
		args[desc.Params[i].Name] = v
	}
	for _, kw := range call.keywords {
		if _, dup := args[kw.name]; dup {
			return fail("duplicate argument: %s", kw.name)
		}
		args[kw.name] = kw.value
	}

	act, err := desc.New(args)
	if err != nil {
		return fail("%v", err)
	}
	return act, nil
}

// coerce converts a literal to the declared parameter kind, leniently: the
// model often writes numbers as strings and vice versa.
func coerce(p Param, v any) (any, error) {
	bad := func() (any, error) {
		return nil, fmt.Errorf("argument %q must be %s, got %s", p.Name, p.Kind, formatLiteral(v))
	}

	switch p.Kind {
	case KindString:
		switch x := v.(type) {
		case string:
			return x, nil
		case int:
			return strconv.Itoa(x), nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case bool:
			return formatLiteral(x), nil
		}
	case KindInt:
		switch x := v.(type) {
		case int:
			return x, nil
		case float64:
			if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
				return int(x), nil
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
				return n, nil
			}
		}
	case KindBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int:
			if x == 0 || x == 1 {
				return x == 1, nil
			}
		case string:
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "true", "t", "yes", "y", "on", "1":
				return true, nil
			case "false", "f", "no", "n", "off", "0":
				return false, nil
			}
		}
	}
	return bad()
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokComma
	tokAssign // '=' or ':'
)

type token struct {
	kind tokenKind
	text string // identifier, unquoted string or number source
	pos  int
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return strconv.Quote(t.text)
	default:
		return "'" + t.text + "'"
	}
}

func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case r == '=' || r == ':':
			toks = append(toks, token{tokAssign, string(r), i})
			i++
		case r == '\'' || r == '"':
			str, n, err := scanString(s[i:])
			if err != nil {
				return nil, fmt.Errorf("%v at offset %d", err, i)
			}
			toks = append(toks, token{tokString, str, i})
			i += n
		case r == '-' || r == '+' || r == '.' || unicode.IsDigit(r):
			j := i + 1
			for j < len(s) && (s[j] == '.' || s[j] == 'e' || s[j] == 'E' || s[j] == '_' || (s[j] >= '0' && s[j] <= '9') ||
				((s[j] == '-' || s[j] == '+') && (s[j-1] == 'e' || s[j-1] == 'E'))) {
				j++
			}
			toks = append(toks, token{tokNumber, s[i:j], i})
			i = j
		case r == '_' || unicode.IsLetter(r):
			j := i
			for j < len(s) {
				r2, n := utf8.DecodeRuneInString(s[j:])
				if r2 != '_' && !unicode.IsLetter(r2) && !unicode.IsDigit(r2) {
					break
				}
				j += n
			}
			toks = append(toks, token{tokIdent, s[i:j], i})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}
	return append(toks, token{tokEOF, "", len(s)}), nil
}

// scanString reads a quoted literal starting at s[0] and returns its value
// and the number of bytes consumed.
func scanString(s string) (string, int, error) {
	q := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == q:
			return b.String(), i + 1, nil
		case c == '\\' && i+1 < len(s):
			i++
			switch e := s[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(e)
			default:
				b.WriteByte('\\')
				b.WriteByte(e)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

type keyword struct {
	name  string
	value any
}

type call struct {
	name       string
	positional []any
	keywords   []keyword
}

// callParser is a recursive-descent parser for
//
//	call    = ident "(" [ arg { "," arg } [ "," ] ] [ ")" ]
//	arg     = ident ( "=" | ":" ) literal | literal
//	literal = string | number | "True" | "False"
//
// A missing closing parenthesis at the end of input is tolerated.
type callParser struct {
	toks []token
	pos  int
}

func (p *callParser) peek() token { return p.toks[p.pos] }

func (p *callParser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *callParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *callParser) parse() (call, error) {
	var c call
	name := p.next()
	if name.kind != tokIdent {
		return c, fmt.Errorf("expected function call, got %s", name.describe())
	}
	c.name = name.text

	if t := p.next(); t.kind != tokLParen {
		return c, fmt.Errorf("expected '(' after %s, got %s", c.name, t.describe())
	}

	seenKeyword := false
	for {
		t := p.peek()
		if t.kind == tokRParen || t.kind == tokEOF {
			break
		}

		if t.kind == tokIdent && p.peekAt(1).kind == tokAssign {
			p.next()
			p.next()
			v, err := p.literal()
			if err != nil {
				return c, err
			}
			c.keywords = append(c.keywords, keyword{name: t.text, value: v})
			seenKeyword = true
		} else {
			if seenKeyword {
				return c, fmt.Errorf("positional argument follows keyword argument")
			}
			v, err := p.literal()
			if err != nil {
				return c, err
			}
			c.positional = append(c.positional, v)
		}

		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}

	switch t := p.next(); t.kind {
	case tokRParen:
		if rest := p.peek(); rest.kind != tokEOF {
			return c, fmt.Errorf("unexpected %s after end of call", rest.describe())
		}
	case tokEOF:
	default:
		return c, fmt.Errorf("expected ',' or ')', got %s", t.describe())
	}
	return c, nil
}

func (p *callParser) literal() (any, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return t.text, nil
	case tokNumber:
		return parseNumber(t.text)
	case tokIdent:
		switch t.text {
		case "True", "true":
			return true, nil
		case "False", "false":
			return false, nil
		}
		if p.peek().kind == tokLParen {
			return nil, fmt.Errorf("nested calls are not allowed: %s(...)", t.text)
		}
		return nil, fmt.Errorf("unsupported argument %s: only literals are allowed", t.text)
	default:
		return nil, fmt.Errorf("expected a literal, got %s", t.describe())
	}
}

// parseNumber tries integer first so a bare 1 stays an int.
func parseNumber(s string) (any, error) {
	clean := strings.ReplaceAll(s, "_", "")
	n, err := strconv.Atoi(clean)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return nil, fmt.Errorf("integer literal %s is out of range", s)
	}
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("invalid number literal %q", s)
}
