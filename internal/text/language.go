package text

import (
	"strings"

	"golang.org/x/text/language"
)

// Language selects the script model of the text recognizer.
type Language string

const (
	Latin      Language = "LATIN"
	Chinese    Language = "CHINESE"
	Devanagari Language = "DEVANAGARI"
	Japanese   Language = "JAPANESE"
	Korean     Language = "KOREAN"
)

// DefaultLanguage is used for missing or unknown languages.
const DefaultLanguage = Latin

var scriptLanguages = map[string]Language{
	"Latn": Latin,
	"Hans": Chinese,
	"Hant": Chinese,
	"Hani": Chinese,
	"Jpan": Japanese,
	"Kore": Korean,
	"Hang": Korean,
	"Deva": Devanagari,
}

// ParseLanguage accepts a script name (LATIN, CHINESE, ...) or a BCP-47
// tag such as "zh" or "hi-IN", which is resolved through its script.
// Unknown input yields DefaultLanguage and false.
func ParseLanguage(s string) (Language, bool) {
	s = strings.TrimSpace(s)
	switch l := Language(strings.ToUpper(s)); l {
	case Latin, Chinese, Devanagari, Japanese, Korean:
		return l, true
	}
	if s == "" {
		return DefaultLanguage, false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return DefaultLanguage, false
	}
	script, conf := tag.Script()
	if conf == language.No {
		return DefaultLanguage, false
	}
	if l, ok := scriptLanguages[script.String()]; ok {
		return l, true
	}
	return DefaultLanguage, false
}

// Tag returns a representative BCP-47 tag for the language.
func (l Language) Tag() string {
	switch l {
	case Chinese:
		return "zh"
	case Devanagari:
		return "hi"
	case Japanese:
		return "ja"
	case Korean:
		return "ko"
	default:
		return "en"
	}
}

func (l Language) String() string { return string(l) }
