package router

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/avarouter/internal/util"
)

// Pattern is a parsed and compiled template for one dimension (path or
// host). It is immutable once built and safe for concurrent use.
type Pattern struct {
	raw      string
	sep      byte
	segments []Segment
	params   []string

	// regex is nil for static patterns.
	regex *regexp.Regexp

	// groupParams maps a capture group index to a parameter name; ""
	// marks groups that carry no parameter, such as groups inside a
	// constraint.
	groupParams []string
}

// NewPathPattern parses a path template and compiles it against the
// given constraints. Constraints from the map override inline ones.
func NewPathPattern(template string, constraints map[string]string) (*Pattern, error) {
	return newPattern(NormalizePath(template), PathSeparator, constraints)
}

// NewHostPattern parses a host template such as "{sub}.example.com".
// Hosts are compared case-insensitively.
func NewHostPattern(template string, constraints map[string]string) (*Pattern, error) {
	if template == "" {
		return nil, util.NewInvalidPatternError(template, -1, "empty host pattern")
	}
	return newPattern(strings.ToLower(template), HostSeparator, constraints)
}

func newPattern(raw string, sep byte, constraints map[string]string) (*Pattern, error) {
	segments, err := parseSegments(raw, sep)
	if err != nil {
		return nil, err
	}
	tokens, err := paramTokens(raw, segments)
	if err != nil {
		return nil, err
	}

	p := &Pattern{raw: raw, sep: sep, segments: segments}
	for _, t := range tokens {
		p.params = append(p.params, t.Value)
	}
	if len(tokens) == 0 {
		return p, nil
	}

	expr, groups, err := p.render(constraints)
	if err != nil {
		return nil, err
	}
	p.regex, err = compileRegex(expr)
	if err != nil {
		return nil, util.NewInvalidPatternErrorWithCause(raw, -1, "cannot compile expression", err)
	}

	// Constraints may contain capture groups of their own, so group
	// indexes are resolved from the names rather than counted.
	p.groupParams = make([]string, len(p.regex.SubexpNames()))
	for i, name := range p.regex.SubexpNames() {
		n, ok := strings.CutPrefix(name, "p")
		if !ok {
			continue
		}
		if k, convErr := strconv.Atoi(n); convErr == nil && k > 0 && k < len(groups) {
			p.groupParams[i] = groups[k]
		}
	}
	return p, nil
}

// effectiveConstraint resolves the constraint of one placeholder:
// route map, then inline, then the dimension default.
func (p *Pattern) effectiveConstraint(t Token, constraints map[string]string) (string, error) {
	if t.Kind == TokenWildcard {
		return WildcardConstraint, nil
	}

	c := t.Constraint
	if mapped, ok := constraints[t.Value]; ok && mapped != "" {
		c = mapped
	}
	c = trimAnchors(c)
	if c == "" {
		if p.sep == HostSeparator {
			return DefaultHostConstraint, nil
		}
		return DefaultPathConstraint, nil
	}

	if _, err := compileRegex("^(?:" + c + ")$"); err != nil {
		return "", util.NewInvalidPatternErrorWithCause(p.raw, t.Offset,
			"invalid constraint for "+strconv.Quote(t.Value), err)
	}
	return c, nil
}

// trimAnchors drops a leading "^" and an unescaped trailing "$". The
// constraint is embedded in the middle of the route expression, where
// anchors could never match.
func trimAnchors(c string) string {
	c = strings.TrimPrefix(c, "^")
	if strings.HasSuffix(c, "$") && !escapedAt(c, len(c)-1) {
		c = c[:len(c)-1]
	}
	return c
}

// escapedAt reports whether the byte at i is preceded by an odd number
// of backslashes.
func escapedAt(s string, i int) bool {
	n := 0
	for i--; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// render builds the anchored expression. Every placeholder becomes a
// group named p<n>; optional segments are wrapped in a non-capturing
// optional group that carries their separator.
func (p *Pattern) render(constraints map[string]string) (string, []string, error) {
	sep := regexp.QuoteMeta(string(p.sep))
	leading := p.sep == PathSeparator

	var b strings.Builder
	groups := []string{""}
	allOptional := true
	// sepPending is true when the next segment must be preceded by a separator.
	sepPending := leading

	for i, seg := range p.segments {
		var sb strings.Builder
		for _, t := range seg.Tokens {
			if t.Kind == TokenLiteral {
				sb.WriteString(regexp.QuoteMeta(t.Value))
				continue
			}
			c, err := p.effectiveConstraint(t, constraints)
			if err != nil {
				return "", nil, err
			}
			sb.WriteString("(?P<p")
			sb.WriteString(strconv.Itoa(len(groups)))
			sb.WriteString(">")
			sb.WriteString("(?:")
			sb.WriteString(c)
			sb.WriteString("))")
			groups = append(groups, t.Value)
		}
		segExpr := sb.String()

		if !seg.IsOptional() {
			allOptional = false
			if sepPending {
				b.WriteString(sep)
			}
			b.WriteString(segExpr)
			sepPending = true
			continue
		}

		switch {
		case sepPending:
			b.WriteString("(?:" + sep + segExpr + ")?")
		case i+1 < len(p.segments):
			// First segment of a host: the separator follows it.
			b.WriteString("(?:" + segExpr + sep + ")?")
		default:
			b.WriteString("(?:" + segExpr + ")?")
		}
		sepPending = sepPending || leading
	}

	body := b.String()
	switch {
	case leading && allOptional:
		return "^(?:" + body + "|/)$", groups, nil
	default:
		return "^" + body + "$", groups, nil
	}
}

// Raw returns the normalized template.
func (p *Pattern) Raw() string {
	return p.raw
}

// Params returns the placeholder names in template order.
func (p *Pattern) Params() []string {
	return p.params
}

// Segments returns the parsed segments.
func (p *Pattern) Segments() []Segment {
	return p.segments
}

// IsStatic reports whether the template has no placeholders.
func (p *Pattern) IsStatic() bool {
	return p.regex == nil
}

// Expression returns the compiled expression, or "" for static patterns.
func (p *Pattern) Expression() string {
	if p.regex == nil {
		return ""
	}
	return p.regex.String()
}

// Match matches s against the pattern and returns the extracted
// parameters in template order. Omitted optional parameters are absent.
func (p *Pattern) Match(s string) (Params, bool) {
	if p.regex == nil {
		return nil, s == p.raw
	}

	idx := p.regex.FindStringSubmatchIndex(s)
	if idx == nil {
		return nil, false
	}

	params := make(Params, 0, len(p.params))
	for g := 1; g < len(p.groupParams); g++ {
		name := p.groupParams[g]
		start, end := idx[2*g], idx[2*g+1]
		if name == "" || start < 0 {
			continue
		}
		params = append(params, Param{Key: name, Value: s[start:end]})
	}
	return params, true
}
