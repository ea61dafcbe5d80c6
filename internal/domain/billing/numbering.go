package billing

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Pattern placeholders.
const (
	PlaceholderPrefix = "{PREFIX}"
	PlaceholderNumber = "{NUMBER}"
	PlaceholderYear   = "{YEAR}"
	PlaceholderMonth  = "{MONTH}"
	PlaceholderClient = "{CLIENT}"
)

const (
	DefaultPrefix  = "FAC"
	DefaultPattern = PlaceholderPrefix + "-" + PlaceholderNumber

	// NumberWidth is the zero-padded width of {NUMBER}.
	NumberWidth = 8

	// FallbackClientID is used when no identifier can be derived from the client.
	FallbackClientID = "CLI"

	clientIDLength = 3
)

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenPrefix
	tokenNumber
	tokenYear
	tokenMonth
	tokenClient
)

var placeholderKinds = map[string]tokenKind{
	PlaceholderPrefix: tokenPrefix,
	PlaceholderNumber: tokenNumber,
	PlaceholderYear:   tokenYear,
	PlaceholderMonth:  tokenMonth,
	PlaceholderClient: tokenClient,
}

type patternToken struct {
	kind    tokenKind
	literal string
}

// Pattern is a compiled invoice number pattern.
type Pattern struct {
	raw    string
	tokens []patternToken
}

// NumberContext holds the values a pattern is rendered with.
type NumberContext struct {
	Prefix     string
	Number     int64
	Date       time.Time
	ClientCode string
	ClientName string
}

// CompilePattern tokenizes raw. Brace groups that are not a known placeholder
// are kept as literal text. An empty pattern compiles to DefaultPattern.
func CompilePattern(raw string) Pattern {
	if strings.TrimSpace(raw) == "" {
		raw = DefaultPattern
	}

	var tokens []patternToken
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			tokens = append(tokens, patternToken{kind: tokenLiteral, literal: literal.String()})
			literal.Reset()
		}
	}

	rest := raw
	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			literal.WriteString(rest)
			break
		}
		literal.WriteString(rest[:open])
		rest = rest[open:]

		end := strings.IndexByte(rest, '}')
		if end < 0 {
			literal.WriteString(rest)
			break
		}
		group := rest[:end+1]
		if kind, ok := placeholderKinds[group]; ok {
			flush()
			tokens = append(tokens, patternToken{kind: kind})
		} else {
			literal.WriteString(group)
		}
		rest = rest[end+1:]
	}
	flush()

	return Pattern{raw: raw, tokens: tokens}
}

// String returns the source text of the pattern.
func (p Pattern) String() string {
	return p.raw
}

// HasNumber reports whether the pattern contains {NUMBER}. Without it every
// allocation would render the same string.
func (p Pattern) HasNumber() bool {
	for _, t := range p.tokens {
		if t.kind == tokenNumber {
			return true
		}
	}
	return false
}

// UsesClient reports whether rendering needs client data.
func (p Pattern) UsesClient() bool {
	for _, t := range p.tokens {
		if t.kind == tokenClient {
			return true
		}
	}
	return false
}

// Render produces the invoice number for nc.
func (p Pattern) Render(nc NumberContext) string {
	var b strings.Builder
	for _, t := range p.tokens {
		switch t.kind {
		case tokenLiteral:
			b.WriteString(t.literal)
		case tokenPrefix:
			b.WriteString(nc.Prefix)
		case tokenNumber:
			fmt.Fprintf(&b, "%0*d", NumberWidth, nc.Number)
		case tokenYear:
			fmt.Fprintf(&b, "%04d", nc.Date.Year())
		case tokenMonth:
			fmt.Fprintf(&b, "%02d", int(nc.Date.Month()))
		case tokenClient:
			b.WriteString(ClientIdentifier(nc.ClientCode, nc.ClientName))
		}
	}
	return b.String()
}

// ValidatePattern rejects patterns that cannot produce unique numbers.
func ValidatePattern(raw string) error {
	if !CompilePattern(raw).HasNumber() {
		return validationError("invoice pattern %q must contain %s", raw, PlaceholderNumber)
	}
	return nil
}

var nonIdentifier = runes.Remove(runes.Predicate(func(r rune) bool {
	return (r < 'A' || r > 'Z') && (r < '0' || r > '9')
}))

// ClientIdentifier returns code verbatim when it is non-blank. Otherwise it
// derives a short identifier from name: each word is uppercased and stripped
// to [A-Z0-9]; a single word yields its first three characters and several
// words yield the initials of up to three. A trailing word written as an
// acronym ("Distribuidora ABC") keeps contributing letters until the result
// is three characters long. With nothing usable the result is FallbackClientID.
func ClientIdentifier(code, name string) string {
	if c := strings.TrimSpace(code); c != "" {
		return c
	}

	var words []clientWord
	for _, raw := range strings.Fields(name) {
		if w := newClientWord(raw); w.text != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return FallbackClientID
	}
	if len(words) == 1 {
		return truncate(words[0].text, clientIDLength)
	}
	if len(words) > clientIDLength {
		words = words[:clientIDLength]
	}

	id := make([]byte, 0, clientIDLength)
	for _, w := range words {
		id = append(id, w.text[0])
	}
	if last := words[len(words)-1]; last.acronym {
		for i := 1; len(id) < clientIDLength && i < len(last.text); i++ {
			id = append(id, last.text[i])
		}
	}
	return string(id)
}

type clientWord struct {
	text    string
	acronym bool
}

// newClientWord sanitizes raw. It is an acronym when it was already written
// in capitals and has at least two letters.
func newClientWord(raw string) clientWord {
	// Casers are stateful, so each call gets its own.
	text, _, err := transform.String(transform.Chain(cases.Upper(language.Und), nonIdentifier), raw)
	if err != nil {
		return clientWord{}
	}
	asWritten, _, _ := transform.String(nonIdentifier, raw)
	letters := strings.IndexFunc(text, func(r rune) bool { return r >= 'A' && r <= 'Z' })
	return clientWord{
		text:    text,
		acronym: len(text) >= 2 && letters >= 0 && asWritten == text,
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
