package wstag

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	liftErrors "github.com/FocuswithJustin/liftws/core/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Tag
		wantStr string
	}{
		{"en", Tag{Language: "en"}, "en"},
		{"DE-ch", Tag{Language: "DE", Region: "ch"}, "de-CH"},
		{"sr-latn-rs", Tag{Language: "sr", Script: "latn", Region: "rs"}, "sr-Latn-RS"},
		{"es-419", Tag{Language: "es", Region: "419"}, "es-419"},
		{"zh-yue-Hant", Tag{Language: "zh", Extlang: "yue", Script: "Hant"}, "zh-yue-Hant"},
		{"de-1996", Tag{Language: "de", Variants: []string{"1996"}}, "de-1996"},
		{"en-fonipa", Tag{Language: "en", Variants: []string{"fonipa"}}, "en-fonipa"},
		{"en-u-co-phonebk", Tag{Language: "en", Extensions: []string{"u-co-phonebk"}}, "en-u-co-phonebk"},
		{"qaa-x-Kal", Tag{Language: "qaa", PrivateUse: []string{"Kal"}}, "qaa-x-kal"},
		{"x-kal-a", Tag{PrivateUse: []string{"kal", "a"}}, "x-kal-a"},
		{"en-Zxxx-x-audio", Tag{Language: "en", Script: "Zxxx", PrivateUse: []string{"audio"}}, "en-Zxxx-x-audio"},
		{"fonipa", Tag{Language: "fonipa"}, "fonipa"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if fmt.Sprintf("%+v", *got) != fmt.Sprintf("%+v", tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, *got, tt.want)
			}
			if got.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", got.String(), tt.wantStr)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"en_US",
		"en-",
		"-en",
		"e",
		"abcd",
		"en-x",
		"en-u",
		"de-abc1",
		"toolongsubtag",
		"en US",
		"en-u-ab-u-cd",
		"12",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", input)
			}
			if !errors.Is(err, liftErrors.ErrInvalidInput) {
				t.Errorf("error %v should match ErrInvalidInput", err)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"en", "en"},
		{"en_US", "en-US"},
		{"  de-ch ", "de-CH"},
		{"qaa-x-Kal", "qaa-x-kal"},
		{"my lang!", "qaa-x-my-lang"},
		{"abcdefghijk", "qaa-x-abcdefgh-ijk"},
		{"???", "qaa-x-unknown"},
		{"Ñandú", "qaa-x-and"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Clean(tt.input)
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if _, err := Parse(got); err != nil {
				t.Errorf("Clean(%q) = %q does not parse: %v", tt.input, got, err)
			}
		})
	}
}

func TestIsVoice(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"en-Zxxx-x-audio", true},
		{"qaa-zxxx-x-kal-AUDIO", true},
		{"en-Zxxx", false},
		{"en-x-audio", false},
		{"en", false},
		{"not a tag", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := IsVoice(tt.id); got != tt.want {
				t.Errorf("IsVoice(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestFilterTextIDs(t *testing.T) {
	ids := []string{"en", "en-Zxxx-x-audio", "de", "fr-Zxxx-x-audio", "qaa-x-kal"}
	want := []string{"en", "de", "qaa-x-kal"}
	if got := FilterTextIDs(ids); !reflect.DeepEqual(got, want) {
		t.Errorf("FilterTextIDs() = %v, want %v", got, want)
	}
	if got := FilterTextIDs(nil); got != nil {
		t.Errorf("FilterTextIDs(nil) = %v, want nil", got)
	}
}
