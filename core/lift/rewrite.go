// Package lift edits writing-system tags in LIFT lexicon documents.
//
// A LIFT multitext field is a run of sibling <form> (or <gloss>) elements,
// each tagged with a writing system in its lang attribute:
//
//	<lexical-unit>
//	  <form lang="de"><text>Hund</text></form>
//	  <form lang="fr"><text>chien</text></form>
//	</lexical-unit>
//
// Rewrite renames one writing system to another in a single forward pass
// and, where the rename makes two alternatives of one field carry the same
// writing system and the same text, blanks the text of every copy after the
// first. Everything else is copied through byte for byte.
package lift

import (
	stdxml "encoding/xml"
	"fmt"
	"io"

	"github.com/FocuswithJustin/liftws/core/errors"
	"github.com/FocuswithJustin/liftws/core/xml"
)

// Element names that hold multitext alternatives.
const (
	FormElement  = "form"
	GlossElement = "gloss"
)

// LangAttr is the attribute carrying the writing-system tag.
const LangAttr = "lang"

// Stats summarizes one rewrite.
type Stats struct {
	Fields       int // multitext fields seen
	Alternatives int // form/gloss elements seen
	Renamed      int // lang attributes changed from the old to the new id
	Blanked      int // duplicate values emptied
}

// Changed reports whether the rewrite altered any token.
func (s Stats) Changed() bool {
	return s.Renamed > 0 || s.Blanked > 0
}

type frameKind int

const (
	documentFrame frameKind = iota
	fieldFrame
	alternativeFrame
)

// frame is one level of the rewrite state machine.
//
// The stack always starts with a document frame. A field frame sits on top
// of the scope holding its siblings (the document or an alternative) and an
// alternative frame sits on top of its field.
type frame struct {
	kind frameKind

	// element is the field's sibling name or the alternative's name.
	element string

	// seen holds the payloads of rewritten alternatives in a field.
	seen map[string]struct{}

	// open holds the child elements of a document or alternative that are
	// still open, innermost last.
	open []stdxml.Name

	// rewritten marks an alternative whose tag matches the rename pair.
	rewritten bool

	// payloadDone is set once an alternative's text payload was handled.
	payloadDone bool
}

// rewriter holds the state of one Rewrite call.
type rewriter struct {
	dst   xml.Sink
	oldID string
	newID string
	stack []frame
	stats Stats
	line  int
}

// Rewrite copies src to dst, changing the lang attribute of every form and
// gloss element tagged oldID or newID to newID.
//
// Inside one multitext field, alternatives whose tag matched are compared by
// their text payload, the first non-blank character data inside the element.
// The first alternative with a given payload keeps it; later ones are emitted
// with empty text. Alternatives in any other writing system are copied
// untouched and never take part in that comparison.
//
// Rewrite returns a malformed-document error when the input ends inside an
// element or closes an element it did not open, and an I/O error when dst
// fails. dst may hold partial output in either case.
func Rewrite(src xml.Source, dst xml.Sink, oldID, newID string) (Stats, error) {
	rw := &rewriter{
		dst:   dst,
		oldID: oldID,
		newID: newID,
		stack: []frame{{kind: documentFrame}},
	}

	for {
		tok, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rw.stats, err
		}
		if tok.Line > 0 {
			rw.line = tok.Line
		}
		if err := rw.step(tok); err != nil {
			return rw.stats, err
		}
	}
	return rw.stats, rw.finish()
}

func (rw *rewriter) top() *frame {
	return &rw.stack[len(rw.stack)-1]
}

func (rw *rewriter) push(f frame) {
	rw.stack = append(rw.stack, f)
}

func (rw *rewriter) pop() {
	rw.stack = rw.stack[:len(rw.stack)-1]
}

// step feeds one token to the frame on top of the stack. A field that ends
// on tok hands it back to the enclosing frame.
func (rw *rewriter) step(tok xml.Token) error {
	for {
		f := rw.top()
		switch f.kind {
		case fieldFrame:
			if rw.continuesField(f, tok) {
				return rw.field(f, tok)
			}
			rw.pop()
		case alternativeFrame:
			return rw.alternative(f, tok)
		default:
			return rw.document(f, tok)
		}
	}
}

func (rw *rewriter) document(f *frame, tok xml.Token) error {
	switch tok.Kind {
	case xml.KindStartElement:
		if isAlternative(tok) {
			return rw.openField(tok)
		}
		f.open = append(f.open, tok.Name)
	case xml.KindEndElement:
		if len(f.open) == 0 {
			return rw.malformed(fmt.Sprintf("unexpected </%s>", tok.QName()))
		}
		if err := rw.closeChild(f, tok); err != nil {
			return err
		}
	}
	return rw.copy(tok)
}

// closeChild pops the innermost open child of f, which tok must close.
func (rw *rewriter) closeChild(f *frame, tok xml.Token) error {
	name := f.open[len(f.open)-1]
	if name != tok.Name {
		return rw.malformed(fmt.Sprintf("<%s> closed by </%s>", qname(name), tok.QName()))
	}
	f.open = f.open[:len(f.open)-1]
	return nil
}

// continuesField reports whether tok still belongs to the current run of
// siblings. Blank text and comments between alternatives do not end it.
func (rw *rewriter) continuesField(f *frame, tok xml.Token) bool {
	switch tok.Kind {
	case xml.KindStartElement:
		return tok.IsStart(f.element)
	case xml.KindText:
		return tok.IsWhitespace()
	case xml.KindOther:
		return true
	default:
		return false
	}
}

func (rw *rewriter) field(f *frame, tok xml.Token) error {
	if tok.Kind == xml.KindStartElement {
		return rw.openAlternative(tok)
	}
	return rw.copy(tok)
}

func (rw *rewriter) openField(tok xml.Token) error {
	rw.stats.Fields++
	rw.push(frame{
		kind:    fieldFrame,
		element: tok.Name.Local,
		seen:    make(map[string]struct{}),
	})
	return rw.openAlternative(tok)
}

func (rw *rewriter) openAlternative(tok xml.Token) error {
	rw.stats.Alternatives++
	alt := frame{kind: alternativeFrame, element: tok.Name.Local}

	lang, ok := tok.AttrValue(LangAttr)
	if ok && (lang == rw.oldID || lang == rw.newID) {
		alt.rewritten = true
		if lang != rw.newID {
			rw.stats.Renamed++
			rw.push(alt)
			return rw.copy(tok.WithAttr(LangAttr, rw.newID))
		}
	}
	rw.push(alt)
	return rw.copy(tok)
}

func (rw *rewriter) alternative(f *frame, tok xml.Token) error {
	switch tok.Kind {
	case xml.KindStartElement:
		if isAlternative(tok) {
			return rw.openField(tok)
		}
		f.open = append(f.open, tok.Name)
	case xml.KindEndElement:
		if len(f.open) > 0 {
			if err := rw.closeChild(f, tok); err != nil {
				return err
			}
			break
		}
		if !tok.IsEnd(f.element) {
			return rw.malformed(fmt.Sprintf("<%s> closed by </%s>", f.element, tok.QName()))
		}
		rw.pop()
	case xml.KindText:
		if f.rewritten && !f.payloadDone && !tok.IsWhitespace() {
			f.payloadDone = true
			return rw.payload(tok)
		}
	}
	return rw.copy(tok)
}

// payload emits the text of a rewritten alternative, blanking it when the
// same value was already emitted in this field.
func (rw *rewriter) payload(tok xml.Token) error {
	seen := rw.stack[len(rw.stack)-2].seen
	if _, dup := seen[tok.Text]; dup {
		rw.stats.Blanked++
		return rw.write(xml.Text(""))
	}
	seen[tok.Text] = struct{}{}
	return rw.copy(tok)
}

func (rw *rewriter) finish() error {
	for len(rw.stack) > 1 {
		f := rw.top()
		if f.kind == alternativeFrame {
			return rw.malformed(fmt.Sprintf("document ended inside <%s>", f.element))
		}
		rw.pop()
	}
	if open := rw.stack[0].open; len(open) != 0 {
		return rw.malformed(fmt.Sprintf("document ended inside <%s>", qname(open[len(open)-1])))
	}
	return nil
}

func (rw *rewriter) copy(tok xml.Token) error {
	return rw.dst.Copy(tok)
}

func (rw *rewriter) write(tok xml.Token) error {
	return rw.dst.Write(tok)
}

func (rw *rewriter) malformed(msg string) error {
	return errors.NewMalformed(rw.line, msg, nil)
}

func qname(n stdxml.Name) string {
	return xml.Token{Name: n}.QName()
}

func isAlternative(tok xml.Token) bool {
	return tok.IsStart(FormElement) || tok.IsStart(GlossElement)
}
