// Package i18n loads locale catalogs and renders message ids.
package i18n

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"idlecraft.ai/internal/sim/events"
)

// BaseLocale must be present; unsupported languages fall back to it.
const BaseLocale = "en"

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds every loaded locale.
type Bundle struct {
	locales map[string]map[string]string
	order   []string
	matcher language.Matcher
}

// LoadDir reads <dir>/<locale>.yaml files. Each file's locale field must match
// its file name.
func LoadDir(dir string) (*Bundle, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale files in %s", dir)
	}
	sort.Strings(paths)

	b := &Bundle{locales: map[string]map[string]string{}}
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var f localeFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if strings.TrimSpace(f.Locale) != name {
			return nil, fmt.Errorf("%s: locale %q must match file name", path, f.Locale)
		}
		if f.Messages == nil {
			return nil, fmt.Errorf("%s: messages map is required", path)
		}
		b.locales[name] = f.Messages
	}
	if err := b.index(); err != nil {
		return nil, err
	}
	return b, nil
}

// New builds a bundle from in-memory catalogs.
func New(locales map[string]map[string]string) (*Bundle, error) {
	b := &Bundle{locales: locales}
	if err := b.index(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bundle) index() error {
	if _, ok := b.locales[BaseLocale]; !ok {
		return fmt.Errorf("base locale %q is missing", BaseLocale)
	}
	b.order = []string{BaseLocale}
	for l := range b.locales {
		if l != BaseLocale {
			b.order = append(b.order, l)
		}
	}
	sort.Strings(b.order[1:])

	tags := make([]language.Tag, 0, len(b.order))
	for _, l := range b.order {
		t, err := language.Parse(l)
		if err != nil {
			return fmt.Errorf("locale %q: %w", l, err)
		}
		tags = append(tags, t)
	}
	b.matcher = language.NewMatcher(tags)
	return nil
}

// Supported lists the locales, base locale first.
func (b *Bundle) Supported() []string { return append([]string(nil), b.order...) }

func (b *Bundle) HasLocale(l string) bool {
	_, ok := b.locales[l]
	return ok
}

// Messages returns a copy of one locale's table.
func (b *Bundle) Messages(locale string) (map[string]string, bool) {
	m, ok := b.locales[locale]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, true
}

// Match picks the closest supported locale for a language tag such as "fr-CA".
func (b *Bundle) Match(lang string) string {
	if b.HasLocale(lang) {
		return lang
	}
	t, err := language.Parse(lang)
	if err != nil {
		return BaseLocale
	}
	_, idx, conf := b.matcher.Match(t)
	if conf == language.No || idx < 0 || idx >= len(b.order) {
		return BaseLocale
	}
	return b.order[idx]
}

func (b *Bundle) lookup(locale, id string) (string, bool) {
	s, ok := b.locales[locale][id]
	return s, ok
}

// Translator renders ids in the current language.
type Translator struct {
	bundle *Bundle
	lang   string
	bus    *events.Bus
	log    *log.Logger
}

func NewTranslator(b *Bundle, lang string, bus *events.Bus, logger *log.Logger) *Translator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Translator{bundle: b, lang: b.Match(lang), bus: bus, log: logger}
}

func (t *Translator) Language() string { return t.lang }

// SetLanguage switches language, falling back to the base locale, and returns
// the locale in effect.
func (t *Translator) SetLanguage(lang string) string {
	next := t.bundle.Match(lang)
	if next != lang {
		t.log.Printf("i18n: language %q not supported, using %q", lang, next)
	}
	t.lang = next
	t.bus.Publish(events.LanguageLoaded, events.LanguagePayload{Language: next})
	return next
}

// T renders id in the current language, then in the base locale. Unknown ids
// render as "".
func (t *Translator) T(id string) string {
	if s, ok := t.bundle.lookup(t.lang, id); ok {
		return s
	}
	if s, ok := t.bundle.lookup(BaseLocale, id); ok {
		return s
	}
	t.log.Printf("i18n: unknown id %q", id)
	return ""
}
