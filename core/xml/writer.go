package xml

import (
	"bufio"
	"io"

	"github.com/FocuswithJustin/liftws/core/errors"
)

// Writer is a Sink writing XML text to an io.Writer.
type Writer struct {
	w          *bufio.Writer
	path       string
	selfClosed bool
}

// NewWriter creates a Writer. path is only used to annotate errors.
func NewWriter(w io.Writer, path string) *Writer {
	return &Writer{w: bufio.NewWriter(w), path: path}
}

// Copy writes the raw input bytes of t, or serializes it when it has none.
func (w *Writer) Copy(t Token) error {
	if t.Raw == nil {
		return w.Write(t)
	}
	w.selfClosed = false
	if _, err := w.w.Write(t.Raw); err != nil {
		return errors.NewIO("write", w.path, err)
	}
	return nil
}

// Write serializes t canonically: double-quoted attributes and minimal
// escaping. The end tag following a self-closing start written here is
// dropped.
func (w *Writer) Write(t Token) error {
	if t.Kind == KindEndElement && w.selfClosed {
		w.selfClosed = false
		return nil
	}
	w.selfClosed = t.Kind == KindStartElement && t.SelfClosing

	writeToken(w.w, t)
	if err := w.err(); err != nil {
		return err
	}
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return errors.NewIO("write", w.path, err)
	}
	return nil
}

// err reports the sticky error of the buffered writer, if any.
func (w *Writer) err() error {
	if _, err := w.w.Write(nil); err != nil {
		return errors.NewIO("write", w.path, err)
	}
	return nil
}
