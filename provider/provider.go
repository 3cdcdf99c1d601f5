// Package provider implements the translation backends: DeepL, DeepSeek
// (chat-based), Azure Translator, and Google Cloud Translation. Every
// backend speaks plain HTTP and applies the same bounded retry policy;
// adapters are stateless beyond held credentials.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Provider names accepted by the CLI --api flag.
const (
	NameDeepL    = "deepl"
	NameDeepSeek = "deepseek"
	NameAzure    = "azure"
	NameGoogle   = "google"
)

// Translator is the minimal capability set every backend implements.
type Translator interface {
	// Name returns the provider identifier (deepl, deepseek, ...).
	Name() string
	// TranslateOne translates a single string. It fails with *Error
	// after the retry policy is exhausted.
	TranslateOne(ctx context.Context, text, targetLang string) (string, error)
}

// BulkTranslator is implemented by backends with a native bulk call.
// TranslateMany preserves input order in its output. On error the caller
// is expected to fall back to per-item TranslateOne for the whole batch;
// there is no partial-batch retry at this level.
type BulkTranslator interface {
	Translator
	TranslateMany(ctx context.Context, texts []string, targetLang string) ([]string, error)
}

// Error is the terminal failure of a provider call: the retry budget is
// spent and the last underlying error is preserved.
type Error struct {
	Provider string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: failed after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Credentials holds whatever the selected backend needs, read from the
// process environment at startup.
type Credentials struct {
	// APIKey authenticates deepl, deepseek, and azure.
	APIKey string
	// Region is the optional Azure resource region.
	Region string
	// ProjectID is the Google Cloud project for the v3 API.
	ProjectID string
	// AccessToken is the OAuth bearer token for Google Cloud.
	AccessToken string
}

// Factory builds a configured adapter.
type Factory func(creds Credentials, client *http.Client) Translator

var factories = map[string]Factory{
	NameDeepL:    newDeepL,
	NameDeepSeek: newDeepSeek,
	NameAzure:    newAzure,
	NameGoogle:   newGoogle,
}

// Names returns the registered provider names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New resolves a provider by name. Unknown names are a configuration
// error, caught before any translation work begins.
func New(name string, creds Credentials, client *http.Client) (Translator, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", name, Names())
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return factory(creds, client), nil
}

// truncate shortens s for inclusion in error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
