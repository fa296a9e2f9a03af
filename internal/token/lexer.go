package token

import (
	"fmt"
	"strings"
)

// Kind classifies a token.
type Kind int

const (
	// Ident is an identifier or keyword.
	Ident Kind = iota
	// Punct is a single punctuation character, or one of the combined
	// operators "->", "::", "=>".
	Punct
	// String is a quoted or raw string literal, including its quotes.
	String
	// Char is a character literal.
	Char
	// Number is a numeric literal.
	Number
	// OpenDelim is one of ( [ {.
	OpenDelim
	// CloseDelim is one of ) ] }.
	CloseDelim
	// EOF marks end of input.
	EOF
)

func (k Kind) String() string {
	switch k {
	case Ident:
		return "ident"
	case Punct:
		return "punct"
	case String:
		return "string"
	case Char:
		return "char"
	case Number:
		return "number"
	case OpenDelim:
		return "open-delim"
	case CloseDelim:
		return "close-delim"
	case EOF:
		return "eof"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Token is one lexical token with its exact byte span.
type Token struct {
	Kind Kind
	// Text is the exact source bytes of the token, quotes included for
	// literals.
	Text string
	// Lo and Hi delimit the token's byte span [Lo, Hi) in the source.
	Lo, Hi int
	// Line is the 1-indexed line on which the token starts.
	Line int
}

// StringValue returns the decoded contents of a String token: quotes
// stripped, raw-string hashes stripped, common escapes resolved for cooked
// strings. Non-string tokens return Text unchanged.
func (t Token) StringValue() string {
	if t.Kind != String {
		return t.Text
	}
	s := t.Text
	if strings.HasPrefix(s, "r") {
		s = s[1:]
		for strings.HasPrefix(s, "#") && strings.HasSuffix(s, "#") {
			s = s[1 : len(s)-1]
		}
		return strings.TrimSuffix(strings.TrimPrefix(s, `"`), `"`)
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, `"`), `"`)
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Lexer produces tokens from host source text.
//
// A Lexer is single-use and not safe for concurrent use; both passes scan in
// file-declaration order, so no concurrent tokenization ever happens.
type Lexer struct {
	path string
	src  string
	pos  int
	line int
}

// NewLexer creates a lexer over src. path is used only for error attribution.
func NewLexer(path string, src []byte) *Lexer {
	return &Lexer{path: path, src: string(src), pos: 0, line: 1}
}

// Tokenize lexes the whole input, excluding the trailing EOF token.
func Tokenize(path string, src []byte) ([]Token, error) {
	lx := NewLexer(path, src)
	var toks []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == EOF {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

// Next returns the next token, skipping whitespace and comments.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipTrivia(); err != nil {
		return Token{}, err
	}
	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Lo: l.pos, Hi: l.pos, Line: l.line}, nil
	}

	lo, line := l.pos, l.line
	c := l.src[l.pos]

	switch {
	case c == '(' || c == '[' || c == '{':
		l.pos++
		return l.tok(OpenDelim, lo, line), nil

	case c == ')' || c == ']' || c == '}':
		l.pos++
		return l.tok(CloseDelim, lo, line), nil

	case c == '"':
		if err := l.scanString(); err != nil {
			return Token{}, err
		}
		return l.tok(String, lo, line), nil

	case c == 'r' && l.looksLikeRawString():
		if err := l.scanRawString(); err != nil {
			return Token{}, err
		}
		return l.tok(String, lo, line), nil

	case c == '\'':
		ok, err := l.scanChar()
		if err != nil {
			return Token{}, err
		}
		if ok {
			return l.tok(Char, lo, line), nil
		}
		// Lifetime or lone quote: emit the quote as punctuation and let the
		// following identifier lex normally.
		l.pos++
		return l.tok(Punct, lo, line), nil

	case isIdentStart(c):
		l.pos++
		for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
			l.pos++
		}
		return l.tok(Ident, lo, line), nil

	case c >= '0' && c <= '9':
		l.pos++
		for l.pos < len(l.src) && (isIdentCont(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		return l.tok(Number, lo, line), nil

	default:
		// Combined operators the block grammar cares about.
		for _, op := range []string{"->", "::", "=>"} {
			if strings.HasPrefix(l.src[l.pos:], op) {
				l.pos += len(op)
				return l.tok(Punct, lo, line), nil
			}
		}
		l.pos++
		return l.tok(Punct, lo, line), nil
	}
}

func (l *Lexer) tok(k Kind, lo, line int) Token {
	return Token{Kind: k, Text: l.src[lo:l.pos], Lo: lo, Hi: l.pos, Line: line}
}

// skipTrivia consumes whitespace, line comments, and (nested) block comments.
func (l *Lexer) skipTrivia() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '\n':
			l.pos++
			l.line++
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*':
			if err := l.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) skipBlockComment() error {
	startLine := l.line
	depth := 0
	for l.pos < len(l.src) {
		switch {
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			depth++
			l.pos += 2
		case strings.HasPrefix(l.src[l.pos:], "*/"):
			depth--
			l.pos += 2
			if depth == 0 {
				return nil
			}
		case l.src[l.pos] == '\n':
			l.line++
			l.pos++
		default:
			l.pos++
		}
	}
	return &ScanError{
		Code:    ErrCodeUnterminatedComment,
		Path:    l.path,
		Line:    startLine,
		Message: "block comment not terminated",
	}
}

func (l *Lexer) scanString() error {
	startLine := l.line
	l.pos++ // opening quote
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos += 2
		case '"':
			l.pos++
			return nil
		case '\n':
			l.line++
			l.pos++
		default:
			l.pos++
		}
	}
	return &ScanError{
		Code:    ErrCodeUnterminatedLiteral,
		Path:    l.path,
		Line:    startLine,
		Message: "string literal not terminated",
	}
}

// looksLikeRawString reports whether the input at the current 'r' begins a
// raw string literal (r"..." or r#"..."#), as opposed to an identifier.
func (l *Lexer) looksLikeRawString() bool {
	i := l.pos + 1
	for i < len(l.src) && l.src[i] == '#' {
		i++
	}
	return i < len(l.src) && l.src[i] == '"'
}

func (l *Lexer) scanRawString() error {
	startLine := l.line
	l.pos++ // the r
	hashes := 0
	for l.pos < len(l.src) && l.src[l.pos] == '#' {
		hashes++
		l.pos++
	}
	l.pos++ // opening quote
	closer := `"` + strings.Repeat("#", hashes)
	for l.pos < len(l.src) {
		if strings.HasPrefix(l.src[l.pos:], closer) {
			l.pos += len(closer)
			return nil
		}
		if l.src[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
	return &ScanError{
		Code:    ErrCodeUnterminatedLiteral,
		Path:    l.path,
		Line:    startLine,
		Message: "raw string literal not terminated",
	}
}

// scanChar consumes a char literal and returns true, or returns false without
// consuming anything if the quote starts a lifetime instead.
func (l *Lexer) scanChar() (bool, error) {
	i := l.pos + 1
	if i >= len(l.src) {
		return false, &ScanError{
			Code:    ErrCodeUnterminatedLiteral,
			Path:    l.path,
			Line:    l.line,
			Message: "char literal not terminated",
		}
	}
	if l.src[i] == '\\' {
		// Escaped char: consume until the closing quote.
		i++
		for i < len(l.src) && l.src[i] != '\'' {
			i++
		}
		if i >= len(l.src) {
			return false, &ScanError{
				Code:    ErrCodeUnterminatedLiteral,
				Path:    l.path,
				Line:    l.line,
				Message: "char literal not terminated",
			}
		}
		l.pos = i + 1
		return true, nil
	}
	if i+1 < len(l.src) && l.src[i] != '\'' && l.src[i+1] == '\'' {
		l.pos = i + 2
		return true, nil
	}
	return false, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
