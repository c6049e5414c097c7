package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	liftErrors "github.com/FocuswithJustin/liftws/core/errors"
)

const sampleLIFT = `<?xml version="1.0" encoding="UTF-8"?>
<!-- exported by hand -->
<lift version="0.13" producer='test'>
  <entry id="hund_1" dateCreated="2024-01-01T00:00:00Z">
    <lexical-unit>
      <form lang="de"><text>Hund</text></form>
      <form lang='de-CH'><text>Hund &amp; Katz</text></form>
    </lexical-unit>
    <sense id="s1">
      <gloss lang="en"><text>dog</text></gloss>
      <definition><form lang="en"><text><![CDATA[a <domestic> animal]]></text></form></definition>
      <trait name="semantic-domain" value="1.6"/>
      <note />
    </sense>
  </entry>
</lift>
`

func copyAll(t *testing.T, doc string) string {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf, "")
	r := NewReader(strings.NewReader(doc))
	for {
		tok, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if err := w.Copy(tok); err != nil {
			t.Fatalf("Copy() error: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	return buf.String()
}

func TestReader_CopyIsByteIdentical(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"lift sample", sampleLIFT},
		{"byte order mark", "\xEF\xBB\xBF<lift><entry/></lift>"},
		{"crlf line endings", "<lift>\r\n  <entry id=\"a\">\r\n  </entry>\r\n</lift>\r\n"},
		{"doctype", "<!DOCTYPE lift>\n<lift/>"},
		{"prefixed names", `<lift xmlns:fw="urn:fw"><fw:x fw:a="1" xml:lang="en"/></lift>`},
		{"processing instruction", `<?xml-stylesheet href="a.xsl"?><lift/>`},
		{"spaces around equals", `<lift><form lang = "en" ></form></lift>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := copyAll(t, tt.doc); got != tt.doc {
				t.Errorf("copy mismatch\n got: %q\nwant: %q", got, tt.doc)
			}
		})
	}
}

func TestReader_Tokens(t *testing.T) {
	tokens, err := Tokenize(`<a x="1"><b/>hi<!--c--></a>`)
	if err != nil {
		t.Fatalf("Tokenize() error: %v", err)
	}

	want := []struct {
		kind Kind
		str  string
	}{
		{KindStartElement, `<a x="1">`},
		{KindStartElement, `<b/>`},
		{KindEndElement, `</b>`},
		{KindText, `hi`},
		{KindOther, `<!--c-->`},
		{KindEndElement, `</a>`},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, w := range want {
		if tokens[i].Kind != w.kind {
			t.Errorf("token %d kind = %v, want %v", i, tokens[i].Kind, w.kind)
		}
		if got := tokens[i].String(); got != w.str {
			t.Errorf("token %d = %q, want %q", i, got, w.str)
		}
	}

	if !tokens[1].SelfClosing {
		t.Error("expected <b/> to be self-closing")
	}
	if tokens[2].Raw == nil || len(tokens[2].Raw) != 0 {
		t.Errorf("synthesized end should have empty non-nil Raw, got %q", tokens[2].Raw)
	}
	if v, ok := tokens[0].AttrValue("x"); !ok || v != "1" {
		t.Errorf("AttrValue(x) = %q, %v", v, ok)
	}
}

func TestReader_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unterminated element", `<lift><entry><form lang="de"><text>Hund</text></form>`},
		{"mismatched end", `<lift><entry></sense></lift>`},
		{"stray end", `<lift/></entry>`},
		{"broken tag", `<lift><form lang="de></lift>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.doc)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, liftErrors.ErrMalformedDocument) {
				t.Errorf("error %v should match ErrMalformedDocument", err)
			}
		})
	}
}

func TestReader_EOFIsSticky(t *testing.T) {
	r := NewReader(strings.NewReader(`<a/>`))
	if _, err := Collect(r); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next() after end = %v, want io.EOF", err)
	}
	if r.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", r.Depth())
	}
}

func TestToken_WithAttr(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		value   string
		wantRaw string
	}{
		{"double quoted", `<form lang="de">`, "de-CH", `<form lang="de-CH">`},
		{"single quoted", `<form lang='de'>`, "x'y", `<form lang='x&apos;y'>`},
		{"attribute order kept", `<form  a="1"   lang="fr" b='2'>`, "de", `<form  a="1"   lang="de" b='2'>`},
		{"prefixed sibling untouched", `<form xml:lang="fr" lang="fr"/>`, "de", `<form xml:lang="fr" lang="de"/>`},
		{"escaping", `<form lang="a">`, `a"&b`, `<form lang="a&quot;&amp;b">`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tt.doc
			if !strings.HasSuffix(doc, "/>") {
				doc += "</form>"
			}
			tokens, err := Tokenize(doc)
			if err != nil {
				t.Fatalf("Tokenize() error: %v", err)
			}
			got := tokens[0].WithAttr("lang", tt.value)
			if string(got.Raw) != tt.wantRaw {
				t.Errorf("Raw = %q, want %q", got.Raw, tt.wantRaw)
			}
			if v, _ := got.AttrValue("lang"); v != tt.value {
				t.Errorf("AttrValue(lang) = %q, want %q", v, tt.value)
			}
			if v, _ := tokens[0].AttrValue("lang"); v == tt.value {
				t.Error("WithAttr must not modify the original token")
			}
		})
	}

	t.Run("missing attribute drops raw", func(t *testing.T) {
		tokens, err := Tokenize(`<form/>`)
		if err != nil {
			t.Fatalf("Tokenize() error: %v", err)
		}
		got := tokens[0].WithAttr("lang", "en")
		if got.Raw != nil {
			t.Errorf("Raw = %q, want nil", got.Raw)
		}
		if got.String() != `<form lang="en"/>` {
			t.Errorf("String() = %q", got.String())
		}
	})
}

func TestWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, "")

	tokens := []Token{
		{Kind: KindOther, Other: xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0"`)}},
		Start("lift", Attr("version", "0.13")),
		Comment(" c "),
		Text("a < b & \"c\""),
		{Kind: KindStartElement, Name: xml.Name{Local: "note"}, SelfClosing: true},
		End("note"),
		{Kind: KindOther, Other: xml.Directive("DOCTYPE x")},
		End("lift"),
	}
	for _, tok := range tokens {
		if err := w.Write(tok); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	want := `<?xml version="1.0"?><lift version="0.13"><!-- c -->a &lt; b &amp; "c"<note/><!DOCTYPE x></lift>`
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriter_Errors(t *testing.T) {
	w := NewWriter(failingWriter{}, "out.lift")
	if err := w.Copy(Token{Kind: KindText, Raw: []byte("x")}); err != nil {
		t.Fatalf("buffered Copy() should not fail yet: %v", err)
	}
	err := w.Flush()
	if err == nil {
		t.Fatal("expected Flush() error")
	}
	if !errors.Is(err, liftErrors.ErrIOFailure) {
		t.Errorf("error %v should match ErrIOFailure", err)
	}
}

func TestSliceSourceAndRecorder(t *testing.T) {
	src := NewSliceSource(Start("a"), Text("x"), End("a"))
	rec := &Recorder{}
	for {
		tok, err := src.Next()
		if err == io.EOF {
			break
		}
		if tok.Kind == KindText {
			_ = rec.Write(tok)
		} else {
			_ = rec.Copy(tok)
		}
	}
	if len(rec.Tokens) != 3 {
		t.Fatalf("recorded %d tokens, want 3", len(rec.Tokens))
	}
	if rec.Copied[1] || !rec.Copied[0] || !rec.Copied[2] {
		t.Errorf("Copied = %v", rec.Copied)
	}
	if !rec.Tokens[0].Equal(Start("a")) {
		t.Errorf("token 0 = %v", rec.Tokens[0])
	}
}

func TestToken_Helpers(t *testing.T) {
	if !Text(" \n\t").IsWhitespace() {
		t.Error("expected whitespace text")
	}
	if Text(" x ").IsWhitespace() {
		t.Error("non-blank text reported as whitespace")
	}
	if !Start("gloss").IsStart("gloss") {
		t.Error("IsStart(gloss) = false")
	}
	if Start("fw:gloss").IsStart("gloss") {
		t.Error("prefixed element must not match IsStart")
	}
	if got := Start("fw:gloss").QName(); got != "fw:gloss" {
		t.Errorf("QName() = %q", got)
	}
	if KindText.String() != "text" || Kind(0).String() != "invalid" {
		t.Error("unexpected Kind.String()")
	}
}
