package block

import (
	"fmt"
	"strings"

	"github.com/mystor/cppbind/internal/scan"
	"github.com/mystor/cppbind/internal/token"
)

// Parse parses one invocation's argument text into items.
// The grammar dispatches on the macro form: cpp! bodies are item sequences,
// cpp_class! declares exactly one class, cpp_mirror! exactly one struct or
// enum.
func Parse(inv scan.Invocation) (*Parsed, error) {
	toks, err := token.Tokenize(inv.File, []byte(inv.Raw))
	if err != nil {
		return nil, err
	}
	p := &parser{inv: inv, toks: toks}

	var items []Item
	switch inv.Kind {
	case scan.MacroClosure:
		items, err = p.parseItems()
	case scan.MacroClass:
		var cls Class
		cls, err = p.parseClass()
		items = []Item{cls}
	case scan.MacroMirror:
		var it Item
		it, err = p.parseMirror()
		items = []Item{it}
	default:
		err = p.errAt(p.peek(), ErrUnknownItem, fmt.Sprintf("unknown macro form %q", inv.Kind))
	}
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return &Parsed{Inv: inv, Items: items}, nil
}

// ParseAll parses every scanned invocation, failing fast on the first
// grammar error.
func ParseAll(invs []scan.Invocation) ([]*Parsed, error) {
	out := make([]*Parsed, 0, len(invs))
	for _, inv := range invs {
		parsed, err := Parse(inv)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

type parser struct {
	inv  scan.Invocation
	toks []token.Token
	i    int
}

// absLine maps a token's line within the argument text to its line in the
// host file. The argument text starts on the invocation's own line.
func (p *parser) absLine(t token.Token) int {
	return p.inv.Line + t.Line - 1
}

func (p *parser) peek() token.Token {
	if p.i < len(p.toks) {
		return p.toks[p.i]
	}
	return token.Token{Kind: token.EOF, Line: lastLine(p.toks)}
}

func (p *parser) next() token.Token {
	t := p.peek()
	if p.i < len(p.toks) {
		p.i++
	}
	return t
}

func lastLine(toks []token.Token) int {
	if len(toks) == 0 {
		return 1
	}
	return toks[len(toks)-1].Line
}

func (p *parser) errAt(t token.Token, code, msg string) *GrammarError {
	return &GrammarError{Code: code, File: p.inv.File, Line: p.absLine(t), Message: msg}
}

func (p *parser) expectEOF() error {
	if t := p.peek(); t.Kind != token.EOF {
		return p.errAt(t, ErrUnexpectedToken, fmt.Sprintf("unexpected %q after invocation body", t.Text))
	}
	return nil
}

// --- cpp! item sequence ---

func (p *parser) parseItems() ([]Item, error) {
	var items []Item
	for p.peek().Kind != token.EOF {
		t := p.peek()
		switch {
		case t.Kind == token.Ident && t.Text == "include":
			inc, err := p.parseInclude()
			if err != nil {
				return nil, err
			}
			items = append(items, inc)
		case t.Kind == token.Ident && t.Text == "raw":
			raw, err := p.parseRaw()
			if err != nil {
				return nil, err
			}
			items = append(items, raw)
		case t.Kind == token.Ident && t.Text == "unsafe",
			t.Kind == token.OpenDelim,
			t.Kind == token.Punct && t.Text == "->":
			cl, err := p.parseClosure()
			if err != nil {
				return nil, err
			}
			items = append(items, cl)
		default:
			return nil, p.errAt(t, ErrUnknownItem, fmt.Sprintf("unknown item keyword %q", t.Text))
		}
	}
	return items, nil
}

func (p *parser) parseInclude() (Include, error) {
	p.next() // include
	t := p.next()
	switch {
	case t.Kind == token.String:
		return Include{Angle: false, Path: t.StringValue()}, nil
	case t.Kind == token.Punct && t.Text == "<":
		lt := t
		for p.peek().Kind != token.EOF {
			g := p.next()
			if g.Kind == token.Punct && g.Text == ">" {
				path := strings.TrimSpace(p.inv.Raw[lt.Hi:g.Lo])
				return Include{Angle: true, Path: path}, nil
			}
		}
		return Include{}, p.errAt(lt, ErrUnexpectedToken, "include path not closed with '>'")
	default:
		return Include{}, p.errAt(t, ErrUnexpectedToken, "include expects <path> or a quoted path")
	}
}

func (p *parser) parseRaw() (Raw, error) {
	p.next() // raw
	t := p.next()
	switch {
	case t.Kind == token.String:
		return Raw{Text: t.StringValue(), Line: p.absLine(t)}, nil
	case t.Kind == token.OpenDelim && t.Text == "{":
		close, err := p.matchDelim(t)
		if err != nil {
			return Raw{}, err
		}
		return Raw{Text: p.inv.Raw[t.Hi:close.Lo], Line: p.absLine(t)}, nil
	default:
		return Raw{}, p.errAt(t, ErrUnexpectedToken, "raw expects a braced block or a string")
	}
}

func (p *parser) parseClosure() (Closure, error) {
	if t := p.peek(); t.Kind == token.Ident && t.Text == "unsafe" {
		p.next()
	}

	var cl Closure
	if t := p.peek(); t.Kind == token.OpenDelim && (t.Text == "(" || t.Text == "[") {
		caps, err := p.parseCaptures()
		if err != nil {
			return Closure{}, err
		}
		cl.Captures = caps
	}

	if t := p.peek(); t.Kind == token.Punct && t.Text == "->" {
		p.next()
		ret, err := p.parseReturn()
		if err != nil {
			return Closure{}, err
		}
		cl.Ret = ret
	}

	body := p.next()
	if !(body.Kind == token.OpenDelim && body.Text == "{") {
		return Closure{}, p.errAt(body, ErrUnexpectedToken, "closure expects a braced body")
	}
	close, err := p.matchDelim(body)
	if err != nil {
		return Closure{}, err
	}
	cl.Body = p.inv.Raw[body.Hi:close.Lo]
	cl.BodyLine = p.absLine(body)
	return cl, nil
}

func (p *parser) parseCaptures() ([]Capture, error) {
	open := p.next()
	closer := matching(open.Text)

	var caps []Capture
	seen := make(map[string]bool)
	for {
		t := p.peek()
		if t.Kind == token.CloseDelim && t.Text == closer {
			p.next()
			return caps, nil
		}
		if t.Kind == token.EOF {
			return nil, p.errAt(open, ErrUnexpectedToken, "capture list not closed")
		}

		cp, err := p.parseCapture()
		if err != nil {
			return nil, err
		}
		if seen[cp.Name] {
			return nil, p.errAt(t, ErrDuplicateCapture, fmt.Sprintf("capture %q bound twice", cp.Name))
		}
		seen[cp.Name] = true
		caps = append(caps, cp)

		// Separator: comma, or immediately the closing delimiter.
		if s := p.peek(); s.Kind == token.Punct && s.Text == "," {
			p.next()
		}
	}
}

func (p *parser) parseCapture() (Capture, error) {
	var cp Capture
	t := p.next()
	if t.Kind == token.Ident && t.Text == "mut" {
		cp.Mut = true
		t = p.next()
	}
	if t.Kind != token.Ident {
		return Capture{}, p.errAt(t, ErrUnexpectedToken, fmt.Sprintf("expected capture name, got %q", t.Text))
	}
	cp.Name = t.Text

	if c := p.peek(); c.Kind == token.Punct && c.Text == ":" {
		p.next()
		host, err := p.hostTypeText("as")
		if err != nil {
			return Capture{}, err
		}
		cp.HostType = host
	}

	as := p.next()
	if !(as.Kind == token.Ident && as.Text == "as") {
		return Capture{}, p.errAt(t, ErrMissingAnnotation,
			fmt.Sprintf("capture %q is missing its native-type annotation", cp.Name))
	}
	str := p.next()
	if str.Kind != token.String {
		return Capture{}, p.errAt(str, ErrMissingAnnotation,
			fmt.Sprintf("capture %q: native type must be a string literal", cp.Name))
	}
	cp.NativeType = str.StringValue()
	return cp, nil
}

// parseReturn parses `HostTy [as "native"]`. When the annotation is omitted
// the host spelling doubles as the native spelling; this is a spelling
// default, not inference — both sides still read the same text.
func (p *parser) parseReturn() (*Return, error) {
	host, err := p.hostTypeText("as")
	if err != nil {
		return nil, err
	}
	if host == "" {
		return nil, p.errAt(p.peek(), ErrUnexpectedToken, "expected return type after '->'")
	}
	ret := &Return{HostType: host, NativeType: host}
	if t := p.peek(); t.Kind == token.Ident && t.Text == "as" {
		p.next()
		str := p.next()
		if str.Kind != token.String {
			return nil, p.errAt(str, ErrMissingAnnotation, "return type: native type must be a string literal")
		}
		ret.NativeType = str.StringValue()
	}
	return ret, nil
}

// hostTypeText consumes a host type expression verbatim, stopping before the
// given keyword, a body brace, a comma, or a list-closing delimiter at depth
// zero. Angle and delimiter depth are tracked so generic arguments, tuples,
// and array types pass through whole.
func (p *parser) hostTypeText(stopKw string) (string, error) {
	start := p.i
	angle, delim := 0, 0
	for {
		t := p.peek()
		if t.Kind == token.EOF {
			break
		}
		if angle == 0 && delim == 0 {
			if t.Kind == token.Ident && t.Text == stopKw {
				break
			}
			if t.Kind == token.OpenDelim && t.Text == "{" {
				break
			}
			if t.Kind == token.CloseDelim {
				break
			}
			if t.Kind == token.Punct && t.Text == "," {
				break
			}
		}
		switch t.Kind {
		case token.OpenDelim:
			delim++
		case token.CloseDelim:
			delim--
		case token.Punct:
			switch t.Text {
			case "<":
				angle++
			case ">":
				angle--
			}
		}
		p.next()
	}
	if p.i == start {
		return "", nil
	}
	lo := p.toks[start].Lo
	hi := p.toks[p.i-1].Hi
	return strings.TrimSpace(p.inv.Raw[lo:hi]), nil
}

// --- cpp_class! ---

func (p *parser) parseClass() (Class, error) {
	var cls Class
	if t := p.peek(); t.Kind == token.Ident && t.Text == "pub" {
		cls.Public = true
		p.next()
	}
	if t := p.next(); !(t.Kind == token.Ident && t.Text == "struct") {
		return Class{}, p.errAt(t, ErrUnexpectedToken, "cpp_class! expects `struct Name as \"native\"`")
	}
	name := p.next()
	if name.Kind != token.Ident {
		return Class{}, p.errAt(name, ErrUnexpectedToken, "expected class name")
	}
	cls.Name = name.Text

	as := p.next()
	if !(as.Kind == token.Ident && as.Text == "as") {
		return Class{}, p.errAt(name, ErrMissingAnnotation,
			fmt.Sprintf("class %q is missing its native-type annotation", cls.Name))
	}
	str := p.next()
	if str.Kind != token.String {
		return Class{}, p.errAt(str, ErrMissingAnnotation,
			fmt.Sprintf("class %q: native type must be a string literal", cls.Name))
	}
	cls.NativeType = str.StringValue()

	if t := p.peek(); t.Kind == token.Punct && t.Text == ":" {
		p.next()
		for {
			c := p.next()
			if c.Kind != token.Ident {
				return Class{}, p.errAt(c, ErrUnexpectedToken, "expected capability name")
			}
			switch c.Text {
			case "destructible":
				cls.Caps.Destructible = true
			case "copyable":
				cls.Caps.Copyable = true
			case "comparable":
				cls.Caps.Comparable = true
			case "default":
				cls.Caps.DefaultConstructible = true
			default:
				return Class{}, p.errAt(c, ErrUnknownCapability,
					fmt.Sprintf("unknown capability %q", c.Text))
			}
			if s := p.peek(); s.Kind == token.Punct && s.Text == "," {
				p.next()
				continue
			}
			break
		}
	}

	// Trailing semicolon tolerated.
	if t := p.peek(); t.Kind == token.Punct && t.Text == ";" {
		p.next()
	}
	return cls, nil
}

// --- cpp_mirror! ---

func (p *parser) parseMirror() (Item, error) {
	t := p.next()
	switch {
	case t.Kind == token.Ident && t.Text == "struct":
		return p.parseStruct()
	case t.Kind == token.Ident && t.Text == "enum":
		return p.parseEnum()
	default:
		return nil, p.errAt(t, ErrUnexpectedToken, "cpp_mirror! expects `struct` or `enum`")
	}
}

func (p *parser) parseStruct() (Struct, error) {
	name := p.next()
	if name.Kind != token.Ident {
		return Struct{}, p.errAt(name, ErrUnexpectedToken, "expected struct name")
	}
	st := Struct{Name: name.Text, NativeType: name.Text}

	if t := p.peek(); t.Kind == token.Ident && t.Text == "as" {
		p.next()
		str := p.next()
		if str.Kind != token.String {
			return Struct{}, p.errAt(str, ErrMissingAnnotation, "native type must be a string literal")
		}
		st.NativeType = str.StringValue()
	}

	open := p.next()
	if !(open.Kind == token.OpenDelim && open.Text == "{") {
		return Struct{}, p.errAt(open, ErrUnexpectedToken, "expected field list")
	}

	seen := make(map[string]bool)
	for {
		t := p.peek()
		if t.Kind == token.CloseDelim && t.Text == "}" {
			p.next()
			break
		}
		if t.Kind == token.EOF {
			return Struct{}, p.errAt(open, ErrUnexpectedToken, "field list not closed")
		}

		fname := p.next()
		if fname.Kind != token.Ident {
			return Struct{}, p.errAt(fname, ErrUnexpectedToken, "expected field name")
		}
		if seen[fname.Text] {
			return Struct{}, p.errAt(fname, ErrDuplicateField,
				fmt.Sprintf("field %q declared twice", fname.Text))
		}
		seen[fname.Text] = true

		if c := p.next(); !(c.Kind == token.Punct && c.Text == ":") {
			return Struct{}, p.errAt(c, ErrUnexpectedToken, "expected ':' after field name")
		}
		host, err := p.hostTypeText("as")
		if err != nil {
			return Struct{}, err
		}
		as := p.next()
		if !(as.Kind == token.Ident && as.Text == "as") {
			return Struct{}, p.errAt(fname, ErrMissingAnnotation,
				fmt.Sprintf("field %q is missing its native-type annotation", fname.Text))
		}
		str := p.next()
		if str.Kind != token.String {
			return Struct{}, p.errAt(str, ErrMissingAnnotation,
				fmt.Sprintf("field %q: native type must be a string literal", fname.Text))
		}
		st.Fields = append(st.Fields, Field{Name: fname.Text, HostType: host, NativeType: str.StringValue()})

		if s := p.peek(); s.Kind == token.Punct && s.Text == "," {
			p.next()
		}
	}

	if len(st.Fields) == 0 {
		return Struct{}, p.errAt(name, ErrEmptyAggregate,
			fmt.Sprintf("struct %q has no fields", st.Name))
	}
	return st, nil
}

func (p *parser) parseEnum() (Enum, error) {
	name := p.next()
	if name.Kind != token.Ident {
		return Enum{}, p.errAt(name, ErrUnexpectedToken, "expected enum name")
	}
	en := Enum{Name: name.Text, NativeType: name.Text, Discipline: DisciplineFlat}

	if t := p.peek(); t.Kind == token.Ident && t.Text == "as" {
		p.next()
		str := p.next()
		if str.Kind != token.String {
			return Enum{}, p.errAt(str, ErrMissingAnnotation, "native type must be a string literal")
		}
		en.NativeType = str.StringValue()
	}

	if t := p.peek(); t.Kind == token.Punct && t.Text == ":" {
		p.next()
		d := p.next()
		switch {
		case d.Kind == token.Ident && d.Text == string(DisciplineFlat):
			en.Discipline = DisciplineFlat
		case d.Kind == token.Ident && d.Text == string(DisciplineScoped):
			en.Discipline = DisciplineScoped
		case d.Kind == token.Ident && d.Text == string(DisciplinePrefixed):
			en.Discipline = DisciplinePrefixed
		default:
			return Enum{}, p.errAt(d, ErrUnknownDiscipline,
				fmt.Sprintf("unknown emission discipline %q", d.Text))
		}
	}

	open := p.next()
	if !(open.Kind == token.OpenDelim && open.Text == "{") {
		return Enum{}, p.errAt(open, ErrUnexpectedToken, "expected variant list")
	}

	seen := make(map[string]bool)
	for {
		t := p.peek()
		if t.Kind == token.CloseDelim && t.Text == "}" {
			p.next()
			break
		}
		if t.Kind == token.EOF {
			return Enum{}, p.errAt(open, ErrUnexpectedToken, "variant list not closed")
		}

		vname := p.next()
		if vname.Kind != token.Ident {
			return Enum{}, p.errAt(vname, ErrUnexpectedToken, "expected variant name")
		}
		if seen[vname.Text] {
			return Enum{}, p.errAt(vname, ErrDuplicateVariant,
				fmt.Sprintf("variant %q declared twice", vname.Text))
		}
		seen[vname.Text] = true

		v := Variant{Name: vname.Text, NativeName: vname.Text, Ordinal: len(en.Variants)}
		if a := p.peek(); a.Kind == token.Ident && a.Text == "as" {
			p.next()
			str := p.next()
			if str.Kind != token.String {
				return Enum{}, p.errAt(str, ErrMissingAnnotation,
					fmt.Sprintf("variant %q: native name must be a string literal", vname.Text))
			}
			v.NativeName = str.StringValue()
		}
		en.Variants = append(en.Variants, v)

		if s := p.peek(); s.Kind == token.Punct && s.Text == "," {
			p.next()
		}
	}

	if len(en.Variants) == 0 {
		return Enum{}, p.errAt(name, ErrEmptyAggregate,
			fmt.Sprintf("enum %q has no variants", en.Name))
	}
	return en, nil
}

// --- shared ---

// matchDelim consumes tokens through the delimiter matching open, which must
// already have been consumed, and returns the closing token.
func (p *parser) matchDelim(open token.Token) (token.Token, error) {
	depth := 1
	for {
		t := p.next()
		switch t.Kind {
		case token.OpenDelim:
			depth++
		case token.CloseDelim:
			depth--
			if depth == 0 {
				return t, nil
			}
		case token.EOF:
			return token.Token{}, p.errAt(open, ErrUnexpectedToken,
				fmt.Sprintf("no closing delimiter for %q", open.Text))
		}
	}
}

func matching(open string) string {
	switch open {
	case "(":
		return ")"
	case "[":
		return "]"
	default:
		return "}"
	}
}
