// Package names turns human readable catalog labels into path segments that
// are safe to expose through the filesystem.
package names

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/unicode/norm"

	"github.com/brettbedarf/daapfs"
)

// Placeholder replaces absent labels
const Placeholder = "none"

var (
	ErrMalformedServiceName = errors.New("service name lacks discovery suffix")
	ErrUnknownCharset       = errors.New("unknown charset")
)

// DefaultServiceSuffix is what raw discovery names of music hosts end with
const DefaultServiceSuffix = daapfs.DefaultServiceType + "." + daapfs.DefaultDomain

var replacer = strings.NewReplacer(
	" ", "_",
	":", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"?", "_",
	`\`, "_",
	"@", "_",
	"/", "_",
)

var defaultSanitizer = &Sanitizer{charset: "utf-8"}

// Sanitizer cleans labels for a target charset. The zero value is not usable;
// see [New].
type Sanitizer struct {
	charset string
	enc     encoding.Encoding // nil means any valid rune is representable
	ascii   bool
}

// New returns a Sanitizer restricting names to runes representable in
// charset, which is any IANA registered name ("utf-8", "us-ascii", "iso-8859-1")
func New(charset string) (*Sanitizer, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	switch name {
	case "", "utf-8", "utf8":
		return defaultSanitizer, nil
	case "ascii", "us-ascii":
		return &Sanitizer{charset: "us-ascii", ascii: true}, nil
	}

	e, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnknownCharset, charset, err)
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCharset, charset)
	}
	return &Sanitizer{charset: name, enc: e}, nil
}

// Charset returns the charset names are restricted to
func (s *Sanitizer) Charset() string {
	return s.charset
}

// Clean returns a filesystem safe segment for label using the UTF-8 sanitizer
func Clean(label string) string {
	return defaultSanitizer.Clean(label)
}

// HostDisplayName derives a host's display name from its raw discovery name
// using the UTF-8 sanitizer and the default music service suffix
func HostDisplayName(raw string) (string, error) {
	return defaultSanitizer.HostDisplayName(raw, DefaultServiceSuffix)
}

// Clean returns a filesystem safe segment for label. An absent (empty) label,
// or one that is empty, "." or ".." once cleaned, yields [Placeholder].
func (s *Sanitizer) Clean(label string) string {
	if label == "" {
		return Placeholder
	}
	return segment(replacer.Replace(strings.TrimSpace(s.representable(label))))
}

// segment keeps cleaned from naming the current or parent directory
func segment(cleaned string) string {
	switch cleaned {
	case "", ".", "..":
		return Placeholder
	}
	return cleaned
}

// HostDisplayName cleans raw then truncates it right before "."+serviceSuffix,
// i.e. "cool music._daap._tcp.local." becomes "cool_music"
func (s *Sanitizer) HostDisplayName(raw, serviceSuffix string) (string, error) {
	cleaned := s.Clean(raw)
	suffix := "." + serviceSuffix
	idx := strings.Index(cleaned, suffix)
	if idx <= 0 {
		return "", fmt.Errorf("%w: %q", ErrMalformedServiceName, raw)
	}
	return segment(cleaned[:idx]), nil
}

// representable drops invalid UTF-8 and every rune the charset cannot encode
func (s *Sanitizer) representable(label string) string {
	label = norm.NFC.String(label)
	var enc *encoding.Encoder
	if s.enc != nil {
		enc = s.enc.NewEncoder()
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		if r == utf8.RuneError {
			continue
		}
		if s.ascii && r >= utf8.RuneSelf {
			continue
		}
		if enc != nil {
			if _, err := enc.String(string(r)); err != nil {
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
