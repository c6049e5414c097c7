package lift

import (
	"io"
	"os"

	"github.com/FocuswithJustin/liftws/core/errors"
	"github.com/FocuswithJustin/liftws/core/xml"
)

// ScanTags returns the distinct values of every unprefixed lang attribute in
// src, on any element, in the order they first appear.
func ScanTags(src xml.Source) ([]string, error) {
	var tags []string
	seen := make(map[string]struct{})

	for {
		tok, err := src.Next()
		if err == io.EOF {
			return tags, nil
		}
		if err != nil {
			return nil, err
		}
		if tok.Kind != xml.KindStartElement {
			continue
		}
		lang, ok := tok.AttrValue(LangAttr)
		if !ok {
			continue
		}
		if _, dup := seen[lang]; dup {
			continue
		}
		seen[lang] = struct{}{}
		tags = append(tags, lang)
	}
}

// ScanFile runs ScanTags over the LIFT file at path.
func ScanFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	tags, err := ScanTags(xml.NewReader(f))
	if err != nil {
		return nil, withPath(err, path)
	}
	return tags, nil
}

// withPath annotates a parse error with the file it came from.
func withPath(err error, path string) error {
	var pe *errors.ParseError
	if errors.As(err, &pe) && pe.Path == "" {
		pe.Path = path
	}
	return err
}
