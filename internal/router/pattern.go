package router

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/avarouter/internal/util"
)

// Separators and default constraints for the two pattern dimensions.
const (
	PathSeparator = '/'
	HostSeparator = '.'

	DefaultPathConstraint = `[^/]+`
	DefaultHostConstraint = `[^.]+`
	WildcardConstraint    = `.+`
)

var paramNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TokenKind classifies one piece of a segment.
type TokenKind uint8

// Token kinds.
const (
	TokenLiteral TokenKind = iota
	TokenParam
	TokenWildcard
)

// Token is a literal run or a placeholder inside a segment.
type Token struct {
	Kind TokenKind

	// Value is the literal text, or the parameter name.
	Value string

	// Constraint is the inline constraint of a parameter, if any.
	Constraint string

	Optional bool

	// Offset is the byte offset of the token in the pattern.
	Offset int
}

// Segment is the text between two separators.
type Segment struct {
	Raw    string
	Tokens []Token
	Offset int
}

// IsLiteral reports whether the segment has no placeholders.
func (s Segment) IsLiteral() bool {
	return len(s.Tokens) == 1 && s.Tokens[0].Kind == TokenLiteral
}

// IsOptional reports whether the whole segment may be omitted.
func (s Segment) IsOptional() bool {
	return len(s.Tokens) == 1 && s.Tokens[0].Optional
}

// HasWildcard reports whether any token of the segment is a wildcard.
func (s Segment) HasWildcard() bool {
	for _, t := range s.Tokens {
		if t.Kind == TokenWildcard {
			return true
		}
	}
	return false
}

// NormalizePath gives a path its canonical form: a leading slash and
// no trailing slash, except for the root.
func NormalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	if path[0] != '/' {
		path = "/" + path
	}
	for len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}

// splitPath splits a normalized path into its segments. The root has none.
func splitPath(path string) []string {
	if path == "/" {
		return nil
	}
	return strings.Split(path[1:], "/")
}

// parseSegments splits a normalized pattern into typed segments.
// For paths the leading separator is skipped.
func parseSegments(pattern string, sep byte) ([]Segment, error) {
	body, base := pattern, 0
	if sep == PathSeparator {
		if pattern == "/" {
			return nil, nil
		}
		body, base = pattern[1:], 1
	}
	if body == "" {
		return nil, nil
	}

	var segments []Segment
	start := 0
	depth := 0
	for i := 0; i <= len(body); i++ {
		if i < len(body) {
			switch body[i] {
			case '{':
				depth++
				continue
			case '}':
				if depth > 0 {
					depth--
				}
				continue
			}
			if body[i] != sep || depth > 0 {
				continue
			}
		}

		raw := body[start:i]
		seg, err := parseSegment(pattern, raw, base+start)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
		start = i + 1
	}

	return segments, nil
}

func parseSegment(pattern, raw string, offset int) (Segment, error) {
	seg := Segment{Raw: raw, Offset: offset}

	if raw == "" {
		return seg, util.NewInvalidPatternError(pattern, offset, "empty segment")
	}

	if !strings.ContainsAny(raw, "{}") {
		if tok, ok := bareWildcard(raw, offset); ok {
			seg.Tokens = []Token{tok}
			return seg, nil
		}
		seg.Tokens = []Token{{Kind: TokenLiteral, Value: raw, Offset: offset}}
		return seg, nil
	}

	i := 0
	for i < len(raw) {
		switch raw[i] {
		case '{':
			end := closingBrace(raw, i)
			if end < 0 {
				return seg, util.NewInvalidPatternError(pattern, offset+i, "unterminated parameter")
			}
			tok, err := parsePlaceholder(pattern, raw[i+1:end], offset+i)
			if err != nil {
				return seg, err
			}
			seg.Tokens = append(seg.Tokens, tok)
			i = end + 1
		case '}':
			return seg, util.NewInvalidPatternError(pattern, offset+i, "unexpected '}'")
		default:
			j := i
			for j < len(raw) && raw[j] != '{' && raw[j] != '}' {
				j++
			}
			seg.Tokens = append(seg.Tokens, Token{Kind: TokenLiteral, Value: raw[i:j], Offset: offset + i})
			i = j
		}
	}

	if len(seg.Tokens) > 1 {
		for _, t := range seg.Tokens {
			if t.Optional {
				return seg, util.NewInvalidPatternError(pattern, t.Offset,
					"optional parameter must occupy a whole segment")
			}
		}
	}

	return seg, nil
}

// bareWildcard recognizes "*" and "name*" segments written without braces.
func bareWildcard(raw string, offset int) (Token, bool) {
	if raw == "*" {
		return Token{Kind: TokenWildcard, Value: "*", Offset: offset}, true
	}
	name, ok := strings.CutSuffix(raw, "*")
	if ok && paramNameRegex.MatchString(name) {
		return Token{Kind: TokenWildcard, Value: name, Offset: offset}, true
	}
	return Token{}, false
}

// closingBrace returns the index of the brace closing the one at
// open, allowing nested braces inside constraints such as \d{3}.
func closingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parsePlaceholder(pattern, content string, offset int) (Token, error) {
	tok := Token{Kind: TokenParam, Offset: offset}

	name, constraint, hasConstraint := strings.Cut(content, ":")
	if hasConstraint {
		if constraint == "" {
			return tok, util.NewInvalidPatternError(pattern, offset, "empty constraint")
		}
		tok.Constraint = constraint
	}

	switch {
	case name == "*":
		tok.Kind = TokenWildcard
	case strings.HasSuffix(name, "*"):
		tok.Kind = TokenWildcard
		name = name[:len(name)-1]
	case strings.HasSuffix(name, "?"):
		tok.Optional = true
		name = name[:len(name)-1]
	}

	if name == "" {
		return tok, util.NewInvalidPatternError(pattern, offset, "empty parameter name")
	}
	if name != "*" && !paramNameRegex.MatchString(name) {
		return tok, util.NewInvalidPatternError(pattern, offset,
			fmt.Sprintf("invalid parameter name %q", name))
	}
	if tok.Kind == TokenWildcard && hasConstraint {
		return tok, util.NewInvalidPatternError(pattern, offset, "wildcard cannot carry a constraint")
	}

	tok.Value = name
	return tok, nil
}

// paramTokens returns the placeholders of segments in pattern order
// and rejects duplicate names. Anonymous wildcards are named by
// position: the first keeps "*", later ones become "*1", "*2", ...
func paramTokens(pattern string, segments []Segment) ([]Token, error) {
	var params []Token
	seen := make(map[string]struct{})
	anonymous := 0
	for i := range segments {
		for j := range segments[i].Tokens {
			t := &segments[i].Tokens[j]
			if t.Kind == TokenLiteral {
				continue
			}
			if t.Kind == TokenWildcard && t.Value == "*" {
				if anonymous > 0 {
					t.Value = "*" + strconv.Itoa(anonymous)
				}
				anonymous++
			}
			if _, dup := seen[t.Value]; dup {
				return nil, util.NewInvalidPatternError(pattern, t.Offset,
					fmt.Sprintf("duplicate parameter %q", t.Value))
			}
			seen[t.Value] = struct{}{}
			params = append(params, *t)
		}
	}
	return params, nil
}
