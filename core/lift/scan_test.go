package lift

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	liftErrors "github.com/FocuswithJustin/liftws/core/errors"
	"github.com/FocuswithJustin/liftws/core/xml"
)

func TestScanTags(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "first seen order without repeats",
			doc:  `<lift><entry><lexical-unit><form lang="de">a</form><form lang="fr">b</form></lexical-unit><citation><form lang="de">c</form></citation></entry></lift>`,
			want: []string{"de", "fr"},
		},
		{
			name: "any element",
			doc:  `<lift><entry><trait lang="qaa"/><sense><gloss lang="en">x</gloss></sense></entry></lift>`,
			want: []string{"qaa", "en"},
		},
		{
			name: "prefixed attributes ignored",
			doc:  `<lift><entry xml:lang="la"><form fw:lang="xx" lang="en">x</form></entry></lift>`,
			want: []string{"en"},
		},
		{
			name: "case sensitive",
			doc:  `<lift><form lang="de"/><form lang="DE"/></lift>`,
			want: []string{"de", "DE"},
		},
		{
			name: "empty value kept",
			doc:  `<lift><form lang=""/></lift>`,
			want: []string{""},
		},
		{
			name: "none",
			doc:  `<lift/>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScanTags(xml.NewReader(strings.NewReader(tt.doc)))
			if err != nil {
				t.Fatalf("ScanTags() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ScanTags() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScanTags_Malformed(t *testing.T) {
	_, err := ScanTags(xml.NewReader(strings.NewReader(`<lift><form lang="de">`)))
	if !errors.Is(err, liftErrors.ErrMalformedDocument) {
		t.Errorf("error = %v, want ErrMalformedDocument", err)
	}
}

func TestScanFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dict.lift")
	if err := os.WriteFile(path, []byte(`<lift><form lang="de"/><form lang="fr"/><form lang="de"/></lift>`), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ScanFile(path)
	if err != nil {
		t.Fatalf("ScanFile() error: %v", err)
	}
	if want := []string{"de", "fr"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ScanFile() = %v, want %v", got, want)
	}

	_, err = ScanFile(filepath.Join(dir, "missing.lift"))
	if !errors.Is(err, liftErrors.ErrIOFailure) {
		t.Errorf("missing file error = %v, want ErrIOFailure", err)
	}

	bad := filepath.Join(dir, "bad.lift")
	if err := os.WriteFile(bad, []byte(`<lift><entry>`), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = ScanFile(bad)
	var pe *liftErrors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if pe.Path != bad {
		t.Errorf("ParseError.Path = %q, want %q", pe.Path, bad)
	}
}
