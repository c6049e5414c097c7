// Package xml provides a forward-only XML token stream for rewriting
// documents in a single pass.
//
// Every token read from a document keeps the exact bytes it was parsed
// from, so a Sink can copy untouched markup through verbatim and only
// re-serialize the tokens a caller actually changes. Namespace prefixes are
// kept as written (xml.Name.Space holds the prefix, not a URI).
//
// Security Notes:
//   - Entity expansion is limited to the five predefined XML entities; the
//     decoder never fetches external entities.
package xml

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/FocuswithJustin/liftws/core/encoding"
)

// Kind identifies the type of a Token.
type Kind int

const (
	// KindStartElement is an opening tag, possibly self-closing.
	KindStartElement Kind = iota + 1
	// KindEndElement is a closing tag. For a self-closing element it is
	// synthesized and carries an empty Raw.
	KindEndElement
	// KindText is character data, including CDATA sections.
	KindText
	// KindOther covers comments, processing instructions and directives.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindStartElement:
		return "start"
	case KindEndElement:
		return "end"
	case KindText:
		return "text"
	case KindOther:
		return "other"
	default:
		return "invalid"
	}
}

// Token is one parse event.
type Token struct {
	Kind Kind

	// Name is set for start and end elements.
	Name xml.Name

	// Attr is set for start elements, in document order.
	Attr []xml.Attr

	// Text is the decoded character data of a text token.
	Text string

	// Other holds an xml.Comment, xml.ProcInst or xml.Directive.
	Other xml.Token

	// SelfClosing reports a start element written as <name/>.
	SelfClosing bool

	// Raw is the exact input the token was parsed from. It is nil for
	// synthesized tokens and empty for the end of a self-closing element.
	Raw []byte

	// Line is the input line the token ended on, 0 when unknown.
	Line int
}

// Source produces tokens in document order. Next returns io.EOF after the
// last token.
type Source interface {
	Next() (Token, error)
}

// Sink consumes tokens. Write serializes the token from its fields; Copy
// emits the token's raw input bytes and falls back to Write when the token
// has none.
type Sink interface {
	Write(t Token) error
	Copy(t Token) error
}

// Start builds a start element token.
func Start(name string, attrs ...xml.Attr) Token {
	return Token{Kind: KindStartElement, Name: parseName(name), Attr: attrs}
}

// End builds an end element token.
func End(name string) Token {
	return Token{Kind: KindEndElement, Name: parseName(name)}
}

// Text builds a text token.
func Text(s string) Token {
	return Token{Kind: KindText, Text: s}
}

// Comment builds a comment token.
func Comment(s string) Token {
	return Token{Kind: KindOther, Other: xml.Comment(s)}
}

// Attr builds an attribute. A "prefix:local" name keeps its prefix.
func Attr(name, value string) xml.Attr {
	return xml.Attr{Name: parseName(name), Value: value}
}

func parseName(s string) xml.Name {
	if i := strings.IndexByte(s, ':'); i > 0 {
		return xml.Name{Space: s[:i], Local: s[i+1:]}
	}
	return xml.Name{Local: s}
}

func qualified(n xml.Name) string {
	if n.Space != "" {
		return n.Space + ":" + n.Local
	}
	return n.Local
}

// QName returns the element name as written, including any prefix.
func (t Token) QName() string {
	return qualified(t.Name)
}

// IsStart reports whether t opens an unprefixed element called local.
func (t Token) IsStart(local string) bool {
	return t.Kind == KindStartElement && t.Name.Space == "" && t.Name.Local == local
}

// IsEnd reports whether t closes an unprefixed element called local.
func (t Token) IsEnd(local string) bool {
	return t.Kind == KindEndElement && t.Name.Space == "" && t.Name.Local == local
}

// AttrValue returns the value of the unprefixed attribute called name.
func (t Token) AttrValue(name string) (string, bool) {
	for _, a := range t.Attr {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// IsWhitespace reports whether t is text made only of XML whitespace.
func (t Token) IsWhitespace() bool {
	return t.Kind == KindText && strings.Trim(t.Text, " \t\r\n") == ""
}

// WithAttr returns a copy of t with the unprefixed attribute name set to
// value. The raw bytes are patched in place when the attribute already
// exists, so quoting, spacing and attribute order are preserved; otherwise
// Raw is dropped and the token will be re-serialized.
func (t Token) WithAttr(name, value string) Token {
	attrs := make([]xml.Attr, len(t.Attr), len(t.Attr)+1)
	copy(attrs, t.Attr)

	found := false
	for i := range attrs {
		if attrs[i].Name.Space == "" && attrs[i].Name.Local == name {
			attrs[i].Value = value
			found = true
			break
		}
	}
	if !found {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
	}

	out := t
	out.Attr = attrs
	out.Raw = nil
	if found && t.Raw != nil {
		if patched, ok := patchAttr(t.Raw, name, value); ok {
			out.Raw = patched
		}
	}
	return out
}

// String returns the canonical serialization of t, ignoring Raw.
func (t Token) String() string {
	var b strings.Builder
	writeToken(&b, t)
	return b.String()
}

// Equal reports whether two tokens serialize identically. Raw and Line are
// not compared.
func (t Token) Equal(o Token) bool {
	return t.Kind == o.Kind && t.String() == o.String()
}

type stringWriter interface {
	WriteString(s string) (int, error)
	WriteByte(c byte) error
}

func writeToken(w stringWriter, t Token) {
	switch t.Kind {
	case KindStartElement:
		w.WriteByte('<')
		w.WriteString(qualified(t.Name))
		for _, a := range t.Attr {
			w.WriteByte(' ')
			w.WriteString(qualified(a.Name))
			w.WriteString(`="`)
			w.WriteString(encoding.EscapeXMLAttr(a.Value))
			w.WriteByte('"')
		}
		if t.SelfClosing {
			w.WriteString("/>")
		} else {
			w.WriteByte('>')
		}
	case KindEndElement:
		w.WriteString("</")
		w.WriteString(qualified(t.Name))
		w.WriteByte('>')
	case KindText:
		w.WriteString(encoding.EscapeXMLText(t.Text))
	case KindOther:
		switch o := t.Other.(type) {
		case xml.Comment:
			w.WriteString("<!--")
			w.WriteString(string(o))
			w.WriteString("-->")
		case xml.ProcInst:
			w.WriteString("<?")
			w.WriteString(o.Target)
			if len(o.Inst) > 0 {
				w.WriteByte(' ')
				w.WriteString(string(o.Inst))
			}
			w.WriteString("?>")
		case xml.Directive:
			w.WriteString("<!")
			w.WriteString(string(o))
			w.WriteByte('>')
		}
	}
}

// patchAttr replaces the value of attribute name inside a raw start tag.
func patchAttr(raw []byte, name, value string) ([]byte, bool) {
	i := bytes.IndexByte(raw, '<')
	if i < 0 {
		return nil, false
	}
	i++
	for i < len(raw) && !isSpace(raw[i]) && raw[i] != '>' && raw[i] != '/' {
		i++
	}

	for i < len(raw) {
		for i < len(raw) && isSpace(raw[i]) {
			i++
		}
		if i >= len(raw) || raw[i] == '>' || raw[i] == '/' {
			return nil, false
		}

		nameStart := i
		for i < len(raw) && raw[i] != '=' && !isSpace(raw[i]) {
			i++
		}
		attrName := raw[nameStart:i]

		for i < len(raw) && isSpace(raw[i]) {
			i++
		}
		if i >= len(raw) || raw[i] != '=' {
			return nil, false
		}
		i++
		for i < len(raw) && isSpace(raw[i]) {
			i++
		}
		if i >= len(raw) || (raw[i] != '"' && raw[i] != '\'') {
			return nil, false
		}
		quote := raw[i]
		i++
		end := bytes.IndexByte(raw[i:], quote)
		if end < 0 {
			return nil, false
		}
		valueStart, valueEnd := i, i+end

		if string(attrName) == name {
			escaped := encoding.EscapeXMLAttr(value)
			if quote == '\'' {
				escaped = strings.ReplaceAll(escaped, "'", "&apos;")
			}
			out := make([]byte, 0, len(raw)-(valueEnd-valueStart)+len(escaped))
			out = append(out, raw[:valueStart]...)
			out = append(out, escaped...)
			out = append(out, raw[valueEnd:]...)
			return out, true
		}
		i = valueEnd + 1
	}
	return nil, false
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
