package lift

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/liftws/core/errors"
)

var alternativesExpr = xpath.MustCompile(".//" + FormElement + " | .//" + GlossElement)

// Usage counts how one writing system is used in a document.
type Usage struct {
	Entries      int // entries with at least one alternative in this writing system
	Alternatives int
	Blank        int // alternatives with no text
}

// Census summarizes the writing systems of a LIFT document by entry.
type Census struct {
	Entries      int
	Alternatives int
	Usage        map[string]*Usage
}

// Tags returns the writing systems found, sorted.
func (c *Census) Tags() []string {
	tags := make([]string, 0, len(c.Usage))
	for tag := range c.Usage {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// TakeCensus reads r one entry at a time and counts the form and gloss
// alternatives of each writing system. Alternatives without a lang
// attribute are counted under the empty tag.
func TakeCensus(r io.Reader) (*Census, error) {
	sp, err := xmlquery.CreateStreamParser(r, "/lift/entry")
	if err != nil {
		return nil, errors.NewMalformed(0, err.Error(), err)
	}

	c := &Census{Usage: make(map[string]*Usage)}
	for {
		entry, err := sp.Read()
		if err == io.EOF {
			return c, nil
		}
		if err != nil {
			return nil, errors.NewMalformed(0, err.Error(), err)
		}
		c.addEntry(entry)
	}
}

func (c *Census) addEntry(entry *xmlquery.Node) {
	c.Entries++
	inEntry := make(map[string]bool)
	for _, alt := range xmlquery.QuerySelectorAll(entry, alternativesExpr) {
		lang := langOf(alt)
		u := c.Usage[lang]
		if u == nil {
			u = &Usage{}
			c.Usage[lang] = u
		}
		c.Alternatives++
		u.Alternatives++
		if strings.TrimSpace(alt.InnerText()) == "" {
			u.Blank++
		}
		if !inEntry[lang] {
			inEntry[lang] = true
			u.Entries++
		}
	}
}

func langOf(n *xmlquery.Node) string {
	for _, a := range n.Attr {
		if a.Name.Space == "" && a.Name.Local == LangAttr {
			return a.Value
		}
	}
	return ""
}

// CensusFile runs TakeCensus over the file at path.
func CensusFile(path string) (*Census, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	c, err := TakeCensus(f)
	if err != nil {
		return nil, withPath(err, path)
	}
	return c, nil
}

// Census takes a census of the file.
func (f *File) Census() (*Census, error) {
	return CensusFile(f.path)
}
