package scan

import (
	"fmt"

	"github.com/mystor/cppbind/internal/token"
	"github.com/mystor/cppbind/internal/walker"
)

// Kind identifies which macro form an invocation uses.
type Kind string

const (
	// MacroClosure is the cpp! form: closures, raw snippets, includes.
	MacroClosure Kind = "cpp"

	// MacroClass is the cpp_class! form: a host wrapper over an opaque
	// native type.
	MacroClass Kind = "cpp_class"

	// MacroMirror is the cpp_mirror! form: a struct or enum realized on
	// both sides.
	MacroMirror Kind = "cpp_mirror"
)

// Invocation is one embedded-code site found in literal source text.
type Invocation struct {
	// File is the path of the enclosing source file.
	File string

	// Kind is the macro form.
	Kind Kind

	// Lo and Hi delimit the byte span of the argument list in File,
	// outermost delimiters excluded.
	Lo, Hi int

	// Line is the 1-indexed line of the macro name.
	Line int

	// Raw is the exact argument text, src[Lo:Hi].
	Raw string
}

// File scans one file's source for macro invocations.
func File(path string, src []byte) ([]Invocation, error) {
	toks, err := token.Tokenize(path, src)
	if err != nil {
		return nil, err
	}

	var invs []Invocation
	for i := 0; i+2 < len(toks); i++ {
		kind, ok := macroKind(toks[i])
		if !ok {
			continue
		}
		if !(toks[i+1].Kind == token.Punct && toks[i+1].Text == "!") {
			continue
		}
		open := toks[i+2]
		if open.Kind != token.OpenDelim {
			continue
		}

		close, next, err := matchDelim(path, toks, i+2)
		if err != nil {
			return nil, err
		}
		invs = append(invs, Invocation{
			File: path,
			Kind: kind,
			Lo:   open.Hi,
			Hi:   close.Lo,
			Line: toks[i].Line,
			Raw:  string(src[open.Hi:close.Lo]),
		})
		i = next
	}
	return invs, nil
}

// Files scans every walked file in order. Invocation order across files
// follows the walk order; within a file, source order.
func Files(files []walker.SourceFile) ([]Invocation, error) {
	var all []Invocation
	for _, f := range files {
		invs, err := File(f.Path, f.Src)
		if err != nil {
			return nil, err
		}
		all = append(all, invs...)
	}
	return all, nil
}

func macroKind(tok token.Token) (Kind, bool) {
	if tok.Kind != token.Ident {
		return "", false
	}
	switch tok.Text {
	case "cpp":
		return MacroClosure, true
	case "cpp_class":
		return MacroClass, true
	case "cpp_mirror":
		return MacroMirror, true
	}
	return "", false
}

// matchDelim finds the token closing the delimiter opened at index open,
// tracking nesting depth across all delimiter types. The token stream has
// already swallowed strings and comments, so a brace inside either can never
// unbalance the count.
func matchDelim(path string, toks []token.Token, open int) (token.Token, int, error) {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].Kind {
		case token.OpenDelim:
			depth++
		case token.CloseDelim:
			depth--
			if depth == 0 {
				return toks[i], i, nil
			}
		}
	}
	return token.Token{}, 0, &token.ScanError{
		Code:    token.ErrCodeUnbalancedDelimiter,
		Path:    path,
		Line:    toks[open].Line,
		Message: fmt.Sprintf("no closing delimiter for %q", toks[open].Text),
	}
}
