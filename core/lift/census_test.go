package lift

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	liftErrors "github.com/FocuswithJustin/liftws/core/errors"
)

const censusDoc = `<?xml version="1.0" encoding="UTF-8"?>
<lift version="0.13">
  <header><fields><field tag="x"><form lang="en"><text>header only</text></form></field></fields></header>
  <entry id="a">
    <lexical-unit>
      <form lang="de"><text>Hund</text></form>
      <form lang="fr"><text>chien</text></form>
    </lexical-unit>
    <sense>
      <gloss lang="en"><text>dog</text></gloss>
      <gloss lang="fr"><text></text></gloss>
    </sense>
  </entry>
  <entry id="b">
    <lexical-unit><form lang="de"><text>Katze</text></form></lexical-unit>
    <sense><gloss><text>cat</text></gloss></sense>
  </entry>
</lift>
`

func TestTakeCensus(t *testing.T) {
	c, err := TakeCensus(strings.NewReader(censusDoc))
	if err != nil {
		t.Fatalf("TakeCensus() error: %v", err)
	}

	if c.Entries != 2 {
		t.Errorf("Entries = %d, want 2", c.Entries)
	}
	if c.Alternatives != 6 {
		t.Errorf("Alternatives = %d, want 6", c.Alternatives)
	}
	if want := []string{"", "de", "en", "fr"}; !reflect.DeepEqual(c.Tags(), want) {
		t.Errorf("Tags() = %q, want %q", c.Tags(), want)
	}

	want := map[string]Usage{
		"":   {Entries: 1, Alternatives: 1},
		"de": {Entries: 2, Alternatives: 2},
		"en": {Entries: 1, Alternatives: 1},
		"fr": {Entries: 1, Alternatives: 2, Blank: 1},
	}
	for tag, w := range want {
		if got := *c.Usage[tag]; got != w {
			t.Errorf("Usage[%q] = %+v, want %+v", tag, got, w)
		}
	}
}

func TestTakeCensus_Empty(t *testing.T) {
	c, err := TakeCensus(strings.NewReader(`<lift version="0.13"></lift>`))
	if err != nil {
		t.Fatalf("TakeCensus() error: %v", err)
	}
	if c.Entries != 0 || len(c.Usage) != 0 {
		t.Errorf("census = %+v, want empty", c)
	}
}

func TestTakeCensus_Malformed(t *testing.T) {
	_, err := TakeCensus(strings.NewReader(`<lift><entry><form lang="de"></entry></lift>`))
	if !errors.Is(err, liftErrors.ErrMalformedDocument) {
		t.Errorf("error = %v, want ErrMalformedDocument", err)
	}
}

func TestFile_Census(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.lift")
	if err := os.WriteFile(path, []byte(censusDoc), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := NewFile(path, Options{}).Census()
	if err != nil {
		t.Fatalf("Census() error: %v", err)
	}
	if c.Entries != 2 {
		t.Errorf("Entries = %d, want 2", c.Entries)
	}
}
