// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package i18n provides the message catalogs for every user-visible text:
// validation reasons, notification messages and field labels. Spanish is
// the language of the associates app; English is kept for browser shells
// that ask for it.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales
var localesFS embed.FS

// Message is one catalog entry. Message holds the English source text and
// Translation the text shown for the file's language. Translations may
// carry fmt verbs filled from T's arguments.
type Message struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Translation string `json:"translation"`
}

// MessageFile is the layout of locales/<lang>/messages.json.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

// Catalog maps message keys to texts per language.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]map[string]string // lang -> key -> text
	matcher  language.Matcher
	tags     []language.Tag
	logger   *slog.Logger
}

var catalog *Catalog

// DefaultLanguage is used when a request does not match any catalog, and
// for keys missing from another catalog.
const DefaultLanguage = "es"

// SupportedLanguages lists the catalog languages, default first.
var SupportedLanguages = []string{"es", "en"}

// Init loads every catalog from the embedded locales. A nil logger keeps
// loading quiet.
func Init(logger *slog.Logger) error {
	c := &Catalog{
		messages: make(map[string]map[string]string, len(SupportedLanguages)),
		logger:   logger,
	}
	for _, lang := range SupportedLanguages {
		c.tags = append(c.tags, language.MustParse(lang))

		file, err := readCatalogFile(lang)
		if err != nil {
			return err
		}
		texts := make(map[string]string, len(file.Messages))
		for _, msg := range file.Messages {
			texts[msg.ID] = msg.Translation
		}
		c.messages[lang] = texts
		c.debug("catalog loaded", "language", lang, "messages", len(texts))
	}
	c.matcher = language.NewMatcher(c.tags)

	catalog = c
	if logger != nil {
		logger.Info("i18n initialized", "languages", SupportedLanguages)
	}
	return nil
}

// MustInit is Init for tests and tools that cannot continue without catalogs.
func MustInit() {
	if err := Init(nil); err != nil {
		panic(err)
	}
}

func readCatalogFile(lang string) (MessageFile, error) {
	path := "locales/" + lang + "/messages.json"
	var file MessageFile
	data, err := localesFS.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return file, nil
}

func (c *Catalog) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

// lookup returns the text for key in lang, falling back to the default
// catalog.
func (c *Catalog) lookup(lang, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if text, ok := c.messages[lang][key]; ok {
		return text, true
	}
	text, ok := c.messages[DefaultLanguage][key]
	if ok && lang != DefaultLanguage {
		c.debug("message missing, using default catalog", "key", key, "lang", lang)
	}
	return text, ok
}

// T returns the text for key in lang, formatted with args. Unknown keys
// come back unchanged so a missing message is visible rather than blank.
func T(lang, key string, args ...any) string {
	if catalog == nil {
		return key
	}
	text, ok := catalog.lookup(lang, key)
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

// Join joins items with the language's list separator, as used when several
// missing fields are reported in one message.
func Join(lang string, items []string) string {
	return strings.Join(items, T(lang, "list.separator"))
}

// GetSupportedLanguages returns the list of catalog languages.
func GetSupportedLanguages() []string {
	return SupportedLanguages
}

// IsSupported reports whether lang has a catalog. Case is ignored.
func IsSupported(lang string) bool {
	return slices.Contains(SupportedLanguages, strings.ToLower(lang))
}

// MatchLanguage picks the catalog for an Accept-Language header or a bare
// language code, so "es-CL" is served the Spanish catalog.
func MatchLanguage(acceptLang string) string {
	if catalog == nil {
		return DefaultLanguage
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(acceptLang)
		if err != nil {
			return DefaultLanguage
		}
		tags = []language.Tag{tag}
	}

	if _, idx, conf := catalog.matcher.Match(tags...); conf != language.No && idx < len(SupportedLanguages) {
		return SupportedLanguages[idx]
	}
	return DefaultLanguage
}

// TranslationCount returns the number of messages loaded for lang.
func TranslationCount(lang string) int {
	if catalog == nil {
		return 0
	}
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	return len(catalog.messages[lang])
}
