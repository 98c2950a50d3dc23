package registry

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokWord
	tokString
	tokEquals
	tokComma
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNewline:
		return "end of line"
	case tokWord:
		return "word"
	case tokString:
		return "string"
	case tokEquals:
		return "'='"
	case tokComma:
		return "','"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	default:
		return "token"
	}
}

type token struct {
	kind tokenKind
	text string
	line int
}

// tokenize splits an assignment source into tokens. Comments start with '#'
// or "//" and run to the end of the line.
func tokenize(name string, src string) ([]token, error) {
	var (
		tokens []token
		line   = 1
		i      = 0
	)

	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			tokens = append(tokens, token{kind: tokNewline, line: line})
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#' || (c == '/' && i+1 < len(src) && src[i+1] == '/'):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '=':
			tokens = append(tokens, token{kind: tokEquals, line: line})
			i++
		case c == ',':
			tokens = append(tokens, token{kind: tokComma, line: line})
			i++
		case c == '{':
			tokens = append(tokens, token{kind: tokLBrace, line: line})
			i++
		case c == '}':
			tokens = append(tokens, token{kind: tokRBrace, line: line})
			i++
		case c == '[':
			tokens = append(tokens, token{kind: tokLBracket, line: line})
			i++
		case c == ']':
			tokens = append(tokens, token{kind: tokRBracket, line: line})
			i++
		case c == '"' || c == '\'':
			text, n, err := scanString(src[i:])
			if err != nil {
				return nil, &ParseError{Source: name, Line: line, Msg: err.Error()}
			}
			tokens = append(tokens, token{kind: tokString, text: text, line: line})
			i += n
		case isWordByte(c):
			start := i
			for i < len(src) && isWordByte(src[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokWord, text: src[start:i], line: line})
		default:
			return nil, &ParseError{Source: name, Line: line, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}

	return append(tokens, token{kind: tokEOF, line: line}), nil
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '-' || c == '.'
}

// scanString reads a quoted string starting at s[0] and returns its unescaped
// text and the number of bytes consumed.
func scanString(s string) (string, int, error) {
	quote := s[0]
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch c {
		case quote:
			return sb.String(), i + 1, nil
		case '\n':
			return "", 0, fmt.Errorf("unterminated string")
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("unterminated string")
			}
			i++
			switch s[i] {
			case '\\', '"', '\'':
				sb.WriteByte(s[i])
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				return "", 0, fmt.Errorf("unknown escape \\%c", s[i])
			}
		default:
			sb.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

type assignParser struct {
	name   string
	tokens []token
	pos    int
}

func parseAssignments(name string, data []byte) ([]assignment, error) {
	tokens, err := tokenize(name, string(data))
	if err != nil {
		return nil, err
	}
	p := &assignParser{name: name, tokens: tokens}
	return p.parseFile()
}

func (p *assignParser) peek() token { return p.tokens[p.pos] }

func (p *assignParser) advance() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *assignParser) errorf(t token, format string, args ...any) error {
	return &ParseError{Source: p.name, Line: t.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *assignParser) expect(kind tokenKind) (token, error) {
	t := p.advance()
	if t.kind != kind {
		return t, p.errorf(t, "expected %s, found %s", kind, describe(t))
	}
	return t, nil
}

func (p *assignParser) skipNewlines() int {
	n := 0
	for p.peek().kind == tokNewline {
		p.advance()
		n++
	}
	return n
}

func (p *assignParser) endStatement() error {
	t := p.advance()
	if t.kind != tokNewline && t.kind != tokEOF {
		return p.errorf(t, "expected end of line, found %s", describe(t))
	}
	return nil
}

func (p *assignParser) keyPath(t token) (KeyPath, error) {
	path, err := ParseKeyPath(t.text)
	if err != nil {
		return nil, &ParseError{Source: p.name, Line: t.line, Msg: "bad key", Err: err}
	}
	return path, nil
}

func (p *assignParser) parseFile() ([]assignment, error) {
	var (
		out    []assignment
		prefix KeyPath
	)

	for {
		p.skipNewlines()
		t := p.peek()
		switch t.kind {
		case tokEOF:
			return out, nil
		case tokLBracket:
			section, err := p.parseSection()
			if err != nil {
				return nil, err
			}
			prefix = section
		case tokWord:
			p.advance()
			path, err := p.keyPath(t)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokEquals); err != nil {
				return nil, err
			}
			value, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			if err := p.endStatement(); err != nil {
				return nil, err
			}
			out = append(out, assignment{path: prefix.Append(path...), value: value, line: t.line})
		default:
			return nil, p.errorf(t, "expected key or section, found %s", describe(t))
		}
	}
}

func (p *assignParser) parseSection() (KeyPath, error) {
	p.advance()
	if p.peek().kind == tokRBracket {
		p.advance()
		return nil, p.endStatement()
	}
	t, err := p.expect(tokWord)
	if err != nil {
		return nil, err
	}
	path, err := p.keyPath(t)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBracket); err != nil {
		return nil, err
	}
	return path, p.endStatement()
}

func (p *assignParser) parseValue() (any, error) {
	t := p.advance()
	switch t.kind {
	case tokString:
		return t.text, nil
	case tokWord:
		switch strings.ToLower(t.text) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, p.errorf(t, "unsupported value %q: strings must be quoted", t.text)
	case tokLBrace:
		return p.parseMapping(t)
	default:
		return nil, p.errorf(t, "expected value, found %s", describe(t))
	}
}

// parseMapping reads members up to the closing brace. Members are separated
// by commas or newlines; nested dotted keys expand into nested mappings.
func (p *assignParser) parseMapping(open token) (map[string]any, error) {
	out := map[string]any{}
	for {
		p.skipNewlines()
		t := p.advance()
		switch t.kind {
		case tokRBrace:
			return out, nil
		case tokEOF:
			return nil, p.errorf(open, "unclosed '{'")
		case tokWord:
		default:
			return nil, p.errorf(t, "expected key or '}', found %s", describe(t))
		}

		path, err := p.keyPath(t)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokEquals); err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if err := assign(out, path, value); err != nil {
			return nil, &ParseError{Source: p.name, Line: t.line, Msg: err.Error()}
		}

		newlines := p.skipNewlines()
		switch next := p.peek(); next.kind {
		case tokComma:
			p.advance()
		case tokRBrace:
		default:
			if newlines == 0 {
				return nil, p.errorf(next, "expected ',' or '}', found %s", describe(next))
			}
		}
	}
}

func describe(t token) string {
	switch t.kind {
	case tokWord:
		return fmt.Sprintf("%q", t.text)
	case tokString:
		return "string"
	default:
		return t.kind.String()
	}
}
