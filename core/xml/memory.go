package xml

import (
	"io"
	"strings"
)

// SliceSource is a Source over an in-memory token list.
type SliceSource struct {
	tokens []Token
	pos    int
}

// NewSliceSource creates a SliceSource.
func NewSliceSource(tokens ...Token) *SliceSource {
	return &SliceSource{tokens: tokens}
}

// Next returns the next token or io.EOF.
func (s *SliceSource) Next() (Token, error) {
	if s.pos >= len(s.tokens) {
		return Token{}, io.EOF
	}
	t := s.tokens[s.pos]
	s.pos++
	return t, nil
}

// Recorder is a Sink that keeps everything it is given.
// Copied[i] reports whether Tokens[i] arrived through Copy.
type Recorder struct {
	Tokens []Token
	Copied []bool
}

// Write records t as re-serialized.
func (r *Recorder) Write(t Token) error {
	r.Tokens = append(r.Tokens, t)
	r.Copied = append(r.Copied, false)
	return nil
}

// Copy records t as copied verbatim.
func (r *Recorder) Copy(t Token) error {
	r.Tokens = append(r.Tokens, t)
	r.Copied = append(r.Copied, true)
	return nil
}

// Tokenize reads a whole document held in a string.
func Tokenize(doc string) ([]Token, error) {
	return Collect(NewReader(strings.NewReader(doc)))
}
