package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"calorie-bot/internal/models"
)

type Kind int

const (
	KindOther Kind = iota
	KindCommand
	KindProfileCandidate
	KindFood
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindProfileCandidate:
		return "profile"
	case KindFood:
		return "food"
	default:
		return "other"
	}
}

// CommandLanguage is the synthetic command name for language-selector input.
const CommandLanguage = "language"

// languageSelectors maps the exact selector tokens to locales, in menu order.
var languageSelectors = map[string]models.Locale{
	"1": models.LocaleRU,
	"2": models.LocaleEN,
	"3": models.LocaleSR,
}

// Classification is the result of Classify. Profile is set for
// KindProfileCandidate, Command and Args for KindCommand.
type Classification struct {
	Kind    Kind
	Profile *models.Profile
	Command string
	Args    string
}

// Locale returns the locale picked by a language-selector command.
func (c Classification) Locale() (models.Locale, bool) {
	if c.Kind != KindCommand || c.Command != CommandLanguage {
		return "", false
	}
	l, ok := languageSelectors[c.Args]
	return l, ok
}

// Err returns models.ErrAmbiguousMessage when the message fits no kind.
func (c Classification) Err() error {
	if c.Kind == KindOther {
		return models.ErrAmbiguousMessage
	}
	return nil
}

// Classifier is stateless; profile gating belongs to the caller.
type Classifier struct {
	extractor *ProfileExtractor
	single    map[string]struct{}
	prefixes  []string
	phrases   []string
}

func NewClassifier(extractor *ProfileExtractor) *Classifier {
	c := &Classifier{
		extractor: extractor,
		single:    make(map[string]struct{}),
	}
	for _, kw := range foodKeywords {
		switch {
		case strings.ContainsRune(kw, ' '):
			c.phrases = append(c.phrases, kw)
		case utf8.RuneCountInString(kw) <= 3:
			c.single[kw] = struct{}{}
		default:
			c.prefixes = append(c.prefixes, kw)
		}
	}
	return c
}

// Classify tags a message. Commands win over profiles, profiles over food,
// and anything with a digit or a food word counts as food. hasProfile does
// not change the result.
func (c *Classifier) Classify(text string, hasProfile bool) Classification {
	trimmed := strings.TrimSpace(text)
	if cmd, ok := parseCommand(trimmed); ok {
		return cmd
	}

	if p, err := c.extractor.Extract(trimmed); err == nil {
		return Classification{Kind: KindProfileCandidate, Profile: &p}
	}

	if c.looksLikeFood(trimmed) {
		return Classification{Kind: KindFood}
	}
	return Classification{Kind: KindOther}
}

func parseCommand(text string) (Classification, bool) {
	if _, ok := languageSelectors[text]; ok {
		return Classification{Kind: KindCommand, Command: CommandLanguage, Args: text}, true
	}
	if !strings.HasPrefix(text, "/") || len(text) < 2 {
		return Classification{}, false
	}

	name, args, _ := strings.Cut(text[1:], " ")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return Classification{}, false
	}
	return Classification{
		Kind:    KindCommand,
		Command: strings.ToLower(name),
		Args:    strings.TrimSpace(args),
	}, true
}

func (c *Classifier) looksLikeFood(text string) bool {
	if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
		return true
	}

	lower := strings.ToLower(text)
	for _, p := range c.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for w := range words(lower) {
		if _, ok := c.single[w]; ok {
			return true
		}
		for _, p := range c.prefixes {
			if strings.HasPrefix(w, p) {
				return true
			}
		}
	}
	return false
}
