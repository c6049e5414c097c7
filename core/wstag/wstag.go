// Package wstag parses and normalizes writing-system identifiers, which are
// IETF language tags such as "de-CH", "sr-Latn-RS" or "qaa-x-mylang".
package wstag

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/liftws/core/errors"
)

// VoiceScript and VoicePrivateUse mark a writing system that holds audio
// file names instead of text.
const (
	VoiceScript     = "Zxxx"
	VoicePrivateUse = "audio"
)

// Tag is a parsed writing-system identifier.
type Tag struct {
	Language   string   // "de"; empty for private-use only tags
	Extlang    string   // "yue" in "zh-yue"
	Script     string   // "Latn"
	Region     string   // "CH" or "419"
	Variants   []string // "fonipa"
	Extensions []string // "u-co-phonebk"
	PrivateUse []string // subtags after "x-"
}

// tagGrammar is the participle grammar for language tags.
// Examples: "en", "zh-yue", "sr-Latn-RS", "de-1996", "en-u-co-phonebk",
// "qaa-x-kal", "x-kal"
//
//nolint:govet // participle grammar tags are not standard struct tags
type tagGrammar struct {
	Private *privateUse `  @@`
	Lang    *langTag    `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type langTag struct {
	Language   string       `@(Alpha2 | Alpha3 | Alnum)`
	Extlang    string       `( "-" @Alpha3 )?`
	Script     string       `( "-" @Alpha4 )?`
	Region     string       `( "-" @(Alpha2 | Digit3) )?`
	Variants   []string     `( "-" @Alnum )*`
	Extensions []*extension `( "-" @@ )*`
	Private    *privateUse  `( "-" @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type extension struct {
	Singleton string   `@Singleton`
	Subtags   []string `( "-" @(Alpha2 | Alpha3 | Alpha4 | Digit3 | Alnum) )+`
}

//nolint:govet // participle grammar tags are not standard struct tags
type privateUse struct {
	Subtags []string `Private ( "-" @(Alpha2 | Alpha3 | Alpha4 | Digit3 | Alnum | Singleton | Private) )+`
}

// tagLexer splits a tag into subtags classified by shape.
// Note: \b keeps a rule from matching a prefix of a longer subtag.
var tagLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Private", Pattern: `[xX]\b`},
	{Name: "Singleton", Pattern: `[0-9A-WYZa-wyz]\b`},
	{Name: "Alpha2", Pattern: `[A-Za-z]{2}\b`},
	{Name: "Alpha3", Pattern: `[A-Za-z]{3}\b`},
	{Name: "Alpha4", Pattern: `[A-Za-z]{4}\b`},
	{Name: "Digit3", Pattern: `[0-9]{3}\b`},
	{Name: "Alnum", Pattern: `[0-9A-Za-z]{1,8}\b`},
	{Name: "Sep", Pattern: `-`},
})

var tagParser = participle.MustBuild[tagGrammar](
	participle.Lexer(tagLexer),
	participle.UseLookahead(3),
)

// Parse parses a writing-system identifier. Subtags are matched case
// insensitively; String returns the canonical casing.
func Parse(s string) (*Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.NewValidation("tag", "empty writing system tag")
	}

	parsed, err := tagParser.ParseString("", s)
	if err != nil {
		return nil, errors.NewValidation("tag", fmt.Sprintf("invalid writing system tag %q: %v", s, err))
	}

	if parsed.Private != nil {
		return &Tag{PrivateUse: parsed.Private.Subtags}, nil
	}

	lt := parsed.Lang
	if !isAlpha(lt.Language) || len(lt.Language) == 4 {
		return nil, errors.NewValidation("tag", fmt.Sprintf("invalid language subtag %q in %q", lt.Language, s))
	}
	for _, v := range lt.Variants {
		if !isVariant(v) {
			return nil, errors.NewValidation("tag", fmt.Sprintf("invalid variant subtag %q in %q", v, s))
		}
	}

	t := &Tag{
		Language: lt.Language,
		Extlang:  lt.Extlang,
		Script:   lt.Script,
		Region:   lt.Region,
		Variants: lt.Variants,
	}
	seen := make(map[string]bool)
	for _, ext := range lt.Extensions {
		key := strings.ToLower(ext.Singleton)
		if seen[key] {
			return nil, errors.NewValidation("tag", fmt.Sprintf("duplicate extension %q in %q", key, s))
		}
		seen[key] = true
		t.Extensions = append(t.Extensions, ext.Singleton+"-"+strings.Join(ext.Subtags, "-"))
	}
	if lt.Private != nil {
		t.PrivateUse = lt.Private.Subtags
	}
	return t, nil
}

// String returns the tag in canonical form: lowercase except for a title
// case script and an uppercase region.
func (t *Tag) String() string {
	var parts []string
	if t.Language != "" {
		parts = append(parts, strings.ToLower(t.Language))
	}
	if t.Extlang != "" {
		parts = append(parts, strings.ToLower(t.Extlang))
	}
	if t.Script != "" {
		parts = append(parts, titleCase(t.Script))
	}
	if t.Region != "" {
		parts = append(parts, strings.ToUpper(t.Region))
	}
	for _, v := range t.Variants {
		parts = append(parts, strings.ToLower(v))
	}
	for _, e := range t.Extensions {
		parts = append(parts, strings.ToLower(e))
	}
	if len(t.PrivateUse) > 0 {
		parts = append(parts, "x")
		for _, p := range t.PrivateUse {
			parts = append(parts, strings.ToLower(p))
		}
	}
	return strings.Join(parts, "-")
}

// IsVoice reports whether t names an audio writing system, which is
// script Zxxx with the private-use subtag "audio".
func (t *Tag) IsVoice() bool {
	if !strings.EqualFold(t.Script, VoiceScript) {
		return false
	}
	for _, p := range t.PrivateUse {
		if strings.EqualFold(p, VoicePrivateUse) {
			return true
		}
	}
	return false
}

// IsVoice reports whether the identifier s names an audio writing system.
// Unparseable identifiers are not voice.
func IsVoice(s string) bool {
	t, err := Parse(s)
	return err == nil && t.IsVoice()
}

// FilterTextIDs returns the ids that are not voice writing systems, keeping
// their order.
func FilterTextIDs(ids []string) []string {
	var out []string
	for _, id := range ids {
		if !IsVoice(id) {
			out = append(out, id)
		}
	}
	return out
}

// Clean turns an identifier found in a document into a usable tag.
// Underscores become hyphens and a valid tag is returned in canonical form.
// Anything else is kept as private use under the "qaa" language, with
// characters outside [0-9A-Za-z] acting as subtag separators.
func Clean(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", "-"))
	if t, err := Parse(s); err == nil {
		return t.String()
	}
	return (&Tag{Language: "qaa", PrivateUse: sanitize(s)}).String()
}

// sanitize splits s into private-use subtags of at most eight
// alphanumerics.
func sanitize(s string) []string {
	var subtags []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			subtags = append(subtags, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		if !isAlnumRune(r) {
			flush()
			continue
		}
		if cur.Len() == 8 {
			flush()
		}
		cur.WriteRune(r)
	}
	flush()
	if len(subtags) == 0 {
		subtags = []string{"unknown"}
	}
	return subtags
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func isAlnumRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return s != ""
}

// isVariant reports whether v is five to eight alphanumerics or a digit
// followed by three alphanumerics.
func isVariant(v string) bool {
	switch {
	case len(v) >= 5 && len(v) <= 8:
		return true
	case len(v) == 4:
		return v[0] >= '0' && v[0] <= '9'
	default:
		return false
	}
}
