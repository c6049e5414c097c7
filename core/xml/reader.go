package xml

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/FocuswithJustin/liftws/core/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// recorder feeds the decoder byte by byte and keeps every byte it handed
// out until the token that consumed it has been returned.
type recorder struct {
	src  *bufio.Reader
	buf  []byte
	base int64 // decoder offset of buf[0]
}

func (r *recorder) ReadByte() (byte, error) {
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}
	r.buf = append(r.buf, b)
	return b, nil
}

func (r *recorder) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	r.buf = append(r.buf, p[:n]...)
	return n, err
}

// take returns the bytes up to the decoder offset and drops them.
func (r *recorder) take(offset int64) []byte {
	n := int(offset - r.base)
	if n < 0 {
		n = 0
	}
	if n > len(r.buf) {
		n = len(r.buf)
	}
	out := make([]byte, n)
	copy(out, r.buf[:n])
	r.buf = append(r.buf[:0], r.buf[n:]...)
	r.base += int64(n)
	return out
}

// Reader is a Source over an XML document. It checks that every end tag
// closes the element it should and that the document does not end inside
// an element; both are reported as malformed documents.
type Reader struct {
	rec  *recorder
	dec  *xml.Decoder
	open []xml.Name
	done bool
}

// NewReader creates a Reader. A leading UTF-8 byte order mark is kept in
// the raw bytes of the first token.
func NewReader(r io.Reader) *Reader {
	br := bufio.NewReader(r)
	rec := &recorder{src: br}
	if p, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(p, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		rec.buf = append(rec.buf, utf8BOM...)
		rec.base = -int64(len(utf8BOM))
	}

	dec := xml.NewDecoder(rec)
	// XXE Protection (CWE-611): only the predefined entities are expanded.
	dec.Entity = map[string]string{}

	return &Reader{rec: rec, dec: dec}
}

// Depth returns the number of currently open elements.
func (r *Reader) Depth() int {
	return len(r.open)
}

// Next returns the next token or io.EOF at the end of a complete document.
func (r *Reader) Next() (Token, error) {
	if r.done {
		return Token{}, io.EOF
	}

	tok, err := r.dec.RawToken()
	if err == io.EOF {
		r.done = true
		if n := len(r.open); n > 0 {
			line, _ := r.dec.InputPos()
			return Token{}, errors.NewMalformed(line,
				fmt.Sprintf("document ended inside <%s>", qualified(r.open[n-1])), io.ErrUnexpectedEOF)
		}
		return Token{}, io.EOF
	}
	if err != nil {
		r.done = true
		line := 0
		var syntaxErr *xml.SyntaxError
		if errors.As(err, &syntaxErr) {
			line = syntaxErr.Line
		}
		return Token{}, errors.NewMalformed(line, err.Error(), err)
	}

	line, _ := r.dec.InputPos()
	out := Token{
		Raw:  r.rec.take(r.dec.InputOffset()),
		Line: line,
	}

	switch t := tok.(type) {
	case xml.StartElement:
		out.Kind = KindStartElement
		out.Name = t.Name
		out.Attr = t.Attr
		out.SelfClosing = bytes.HasSuffix(out.Raw, []byte("/>"))
		r.open = append(r.open, t.Name)
	case xml.EndElement:
		n := len(r.open)
		if n == 0 {
			r.done = true
			return Token{}, errors.NewMalformed(line,
				fmt.Sprintf("unexpected </%s>", qualified(t.Name)), nil)
		}
		if r.open[n-1] != t.Name {
			r.done = true
			return Token{}, errors.NewMalformed(line,
				fmt.Sprintf("<%s> closed by </%s>", qualified(r.open[n-1]), qualified(t.Name)), nil)
		}
		r.open = r.open[:n-1]
		out.Kind = KindEndElement
		out.Name = t.Name
	case xml.CharData:
		out.Kind = KindText
		out.Text = string(t)
	case xml.Comment:
		out.Kind = KindOther
		out.Other = t.Copy()
	case xml.ProcInst:
		out.Kind = KindOther
		out.Other = t.Copy()
	case xml.Directive:
		out.Kind = KindOther
		out.Other = t.Copy()
	}
	return out, nil
}

// Collect drains src into a slice.
func Collect(src Source) ([]Token, error) {
	var tokens []Token
	for {
		t, err := src.Next()
		if err == io.EOF {
			return tokens, nil
		}
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, t)
	}
}
