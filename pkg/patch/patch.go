// Package patch rewrites the version attribute on a document's root
// element.
package patch

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrVersionNotFound is returned when no opening tag carrying a numeric
// Version attribute is present.
var ErrVersionNotFound = errors.New("version attribute not found")

// ErrInvalidVersion is returned for version tokens that are not all digits.
var ErrInvalidVersion = errors.New("version must be a non-empty string of digits")

// Attr is a fixed attribute written ahead of Version in the rebuilt tag.
type Attr struct {
	Name  string `mapstructure:"name"`
	Value string `mapstructure:"value"`
}

const (
	DefaultElement = "Project"
	versionAttr    = "Version"
)

// DefaultAttributes are the attributes every project root element carries.
var DefaultAttributes = []Attr{
	{Name: "ObjectID", Value: "1"},
	{Name: "ClassID", Value: "62ad66dd-0dcd-42da-a660-6d8fbde94876"},
}

// Patcher locates the first opening tag of Element that carries a numeric
// Version attribute and rebuilds it with Attributes plus the new version.
type Patcher struct {
	Element    string
	Attributes []Attr

	re *regexp.Regexp
}

// Default returns a Patcher for project documents.
func Default() *Patcher {
	p, _ := New(DefaultElement, DefaultAttributes)
	return p
}

// New compiles a Patcher for the given element name.
func New(element string, attrs []Attr) (*Patcher, error) {
	if element == "" {
		return nil, fmt.Errorf("element name is required")
	}
	attr := `\s+[^\s=/>]+\s*=\s*"[^"]*"`
	pattern := `<` + regexp.QuoteMeta(element) +
		`(?:` + attr + `)*?` +
		`\s+` + versionAttr + `\s*=\s*"(\d+)"` +
		`(?:` + attr + `)*\s*>`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern for %s: %w", element, err)
	}
	return &Patcher{
		Element:    element,
		Attributes: append([]Attr(nil), attrs...),
		re:         re,
	}, nil
}

// Detect returns the version held by the first matching tag.
func (p *Patcher) Detect(doc string) (string, error) {
	m := p.re.FindStringSubmatch(doc)
	if m == nil {
		return "", ErrVersionNotFound
	}
	return m[1], nil
}

// Patch replaces the first matching tag with a rebuilt one carrying
// version. Everything outside the matched span is left as is.
func (p *Patcher) Patch(doc, version string) (string, error) {
	if !ValidVersion(version) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	loc := p.re.FindStringIndex(doc)
	if loc == nil {
		return "", ErrVersionNotFound
	}

	var sb strings.Builder
	sb.Grow(len(doc) + 64)
	sb.WriteString(doc[:loc[0]])
	sb.WriteString(p.Tag(version))
	sb.WriteString(doc[loc[1]:])
	return sb.String(), nil
}

// Tag renders the opening tag written by Patch.
func (p *Patcher) Tag(version string) string {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(p.Element)
	for _, a := range p.Attributes {
		fmt.Fprintf(&sb, ` %s="%s"`, a.Name, a.Value)
	}
	fmt.Fprintf(&sb, ` %s="%s">`, versionAttr, version)
	return sb.String()
}

// ValidVersion reports whether s is a usable version token.
func ValidVersion(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
