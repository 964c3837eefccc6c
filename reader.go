package sigil

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type reader struct {
	input []rune
	pos   int
}

// Read parses a single expression and rejects trailing input.
func Read(input string) (any, error) {
	r := &reader{input: []rune(input), pos: 0}
	r.skipWhitespace()
	if r.pos >= len(r.input) {
		return nil, fmt.Errorf("empty input")
	}
	expr, err := r.parseExpr()
	if err != nil {
		return nil, err
	}
	r.skipWhitespace()
	if r.pos < len(r.input) {
		return nil, fmt.Errorf("unexpected input after expression at position %d", r.pos)
	}
	return expr, nil
}

// ReadAll parses a sequence of expressions separated by whitespace.
func ReadAll(input string) ([]any, error) {
	r := &reader{input: []rune(input), pos: 0}
	var exprs []any
	for {
		r.skipWhitespace()
		if r.pos >= len(r.input) {
			return exprs, nil
		}
		expr, err := r.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
}

func (r *reader) parseExpr() (any, error) {
	if r.pos >= len(r.input) {
		return nil, fmt.Errorf("unexpected end of input")
	}
	ch := r.input[r.pos]
	switch {
	case ch == '\'':
		r.pos++ // skip '\''
		inner, err := r.parseExpr()
		if err != nil {
			return nil, err
		}
		return Quote{Item: inner}, nil
	case ch == '`':
		r.pos++ // skip '`'
		inner, err := r.parseExpr()
		if err != nil {
			return nil, err
		}
		return NewCall(Symbol("quasiquote"), inner), nil
	case ch == '~':
		r.pos++ // skip '~'
		if r.pos < len(r.input) && r.input[r.pos] == '@' {
			r.pos++ // skip '@'
			inner, err := r.parseExpr()
			if err != nil {
				return nil, err
			}
			return UnquoteSplice{Item: inner}, nil
		}
		inner, err := r.parseExpr()
		if err != nil {
			return nil, err
		}
		return Unquote{Item: inner}, nil
	case ch == '(':
		return r.parseCall()
	case ch == '"':
		return r.parseString()
	default:
		return r.parseAtom()
	}
}

// parseCall reads entries until the closing paren. A token beginning
// with ':' names a keyword entry and takes the following expression as
// its value; repeating a name keeps its position and replaces its
// value.
func (r *reader) parseCall() (any, error) {
	r.pos++ // skip '('
	var items []any
	var kw []KwEntry
	for {
		r.skipWhitespace()
		if r.pos >= len(r.input) {
			return nil, fmt.Errorf("unclosed call")
		}
		if r.input[r.pos] == ')' {
			r.pos++ // skip ')'
			c := NewCall(items...)
			for _, e := range kw {
				c.setKw(e.Name, e.Value)
			}
			return c, nil
		}
		if r.input[r.pos] == ':' {
			name, err := r.parseKwName()
			if err != nil {
				return nil, err
			}
			r.skipWhitespace()
			if r.pos >= len(r.input) || r.input[r.pos] == ')' || r.input[r.pos] == ':' {
				return nil, fmt.Errorf("keyword entry :%s has no value", name)
			}
			value, err := r.parseExpr()
			if err != nil {
				return nil, err
			}
			kw = append(kw, KwEntry{Name: name, Value: value})
			continue
		}
		item, err := r.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func (r *reader) parseKwName() (string, error) {
	r.pos++ // skip ':'
	start := r.pos
	for r.pos < len(r.input) && !isDelimiter(r.input[r.pos]) {
		r.pos++
	}
	name := string(r.input[start:r.pos])
	if name == "" {
		return "", fmt.Errorf("empty keyword name at position %d", start)
	}
	return name, nil
}

func (r *reader) parseString() (any, error) {
	r.pos++ // skip opening '"'
	var buf strings.Builder
	for r.pos < len(r.input) {
		ch := r.input[r.pos]
		if ch == '\\' {
			r.pos++
			if r.pos >= len(r.input) {
				return nil, fmt.Errorf("unexpected end of input in string escape")
			}
			esc := r.input[r.pos]
			switch esc {
			case 'n':
				buf.WriteRune('\n')
			case 't':
				buf.WriteRune('\t')
			case '\\':
				buf.WriteRune('\\')
			case '"':
				buf.WriteRune('"')
			default:
				return nil, fmt.Errorf("unknown escape sequence: \\%c", esc)
			}
			r.pos++
			continue
		}
		if ch == '"' {
			r.pos++ // skip closing '"'
			return buf.String(), nil
		}
		buf.WriteRune(ch)
		r.pos++
	}
	return nil, fmt.Errorf("unclosed string")
}

func (r *reader) parseAtom() (any, error) {
	start := r.pos
	for r.pos < len(r.input) && !isDelimiter(r.input[r.pos]) {
		r.pos++
	}
	token := string(r.input[start:r.pos])
	if token == "" {
		return nil, fmt.Errorf("unexpected character: %c", r.input[start])
	}

	if token == "true" {
		return true, nil
	}
	if token == "false" {
		return false, nil
	}
	if token == "nil" {
		return nil, nil
	}

	if token[0] == ':' {
		return nil, fmt.Errorf("keyword argument outside call: %s", token)
	}
	if token[0] == '#' {
		return nil, fmt.Errorf("reserved symbol: %s (names beginning with # are generated)", token)
	}

	if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return i, nil
	}

	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f, nil
	}

	return Symbol(token), nil
}

func (r *reader) skipWhitespace() {
	for r.pos < len(r.input) {
		ch := r.input[r.pos]
		if ch == ';' {
			for r.pos < len(r.input) && r.input[r.pos] != '\n' {
				r.pos++
			}
			continue
		}
		if !unicode.IsSpace(ch) {
			break
		}
		r.pos++
	}
}

func isDelimiter(ch rune) bool {
	return unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' || ch == ';' || ch == '\'' || ch == '`' || ch == '~'
}
