// Package config resolves runtime configuration: provider credentials
// from the process environment (optionally seeded from a .env file) and
// defaults from an optional .potrans.yaml in the working directory.
//
// Precedence for any setting: command-line flag, then .potrans.yaml,
// then the built-in default. Credentials come only from the environment;
// they never live in the YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"potrans/provider"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// Error marks a configuration problem that is fatal at startup, as
// opposed to per-entry translation errors that a run recovers from.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

func errorf(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// ---------------------------------------------------------------------------
// Environment / credentials
// ---------------------------------------------------------------------------

// Credential environment variables, one set per provider.
const (
	EnvDeepLKey      = "DEEPL_API_KEY"
	EnvDeepSeekKey   = "DEEPSEEK_API_KEY"
	EnvAzureKey      = "AZURE_TRANSLATOR_KEY"
	EnvAzureRegion   = "AZURE_TRANSLATOR_REGION"
	EnvGoogleProject = "GOOGLE_CLOUD_PROJECT"
	EnvGoogleToken   = "GOOGLE_ACCESS_TOKEN"
)

// LoadDotenv seeds the process environment from dir/.env if it exists.
// Variables already set in the environment win over the file.
func LoadDotenv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Credentials looks up the credentials the named provider needs.
// A missing required variable is a fatal *Error naming the variable,
// so the run stops before any catalog work begins.
func Credentials(providerName string) (provider.Credentials, error) {
	switch providerName {
	case provider.NameDeepL:
		key := os.Getenv(EnvDeepLKey)
		if key == "" {
			return provider.Credentials{}, errorf("deepl requires %s to be set", EnvDeepLKey)
		}
		return provider.Credentials{APIKey: key}, nil

	case provider.NameDeepSeek:
		key := os.Getenv(EnvDeepSeekKey)
		if key == "" {
			return provider.Credentials{}, errorf("deepseek requires %s to be set", EnvDeepSeekKey)
		}
		return provider.Credentials{APIKey: key}, nil

	case provider.NameAzure:
		key := os.Getenv(EnvAzureKey)
		if key == "" {
			return provider.Credentials{}, errorf("azure requires %s to be set", EnvAzureKey)
		}
		return provider.Credentials{
			APIKey: key,
			Region: os.Getenv(EnvAzureRegion),
		}, nil

	case provider.NameGoogle:
		projectID := os.Getenv(EnvGoogleProject)
		if projectID == "" {
			return provider.Credentials{}, errorf("google requires %s to be set", EnvGoogleProject)
		}
		token := os.Getenv(EnvGoogleToken)
		if token == "" {
			return provider.Credentials{}, errorf(
				"google requires %s to be set (e.g. from `gcloud auth print-access-token`)", EnvGoogleToken)
		}
		return provider.Credentials{ProjectID: projectID, AccessToken: token}, nil

	default:
		return provider.Credentials{}, errorf(
			"unknown provider %q (available: %s)", providerName, strings.Join(provider.Names(), ", "))
	}
}

// ---------------------------------------------------------------------------
// .potrans.yaml
// ---------------------------------------------------------------------------

// FileName is the per-project defaults file, looked up in the working
// directory.
const FileName = ".potrans.yaml"

// File holds the optional per-project defaults. Every field is
// optional; zero values mean "not set" and leave the flag default in
// force.
type File struct {
	// API is the default provider name.
	API string `yaml:"api,omitempty"`
	// TargetLang is the default target language code.
	TargetLang string `yaml:"target_lang,omitempty"`
	// BatchSize is the default bulk chunk size.
	BatchSize int `yaml:"batch_size,omitempty"`
	// Parallel is the default worker count.
	Parallel int `yaml:"parallel,omitempty"`
	// Delay is the default inter-call delay in seconds.
	Delay float64 `yaml:"delay,omitempty"`
	// CacheDir overrides the default cache directory.
	CacheDir string `yaml:"cache_dir,omitempty"`
}

// LoadFile loads .potrans.yaml from dir. Returns nil with no error when
// the file does not exist; a present but unparsable file is an error,
// silently ignoring a config the user wrote would be worse.
func LoadFile(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errorf("parsing %s: %v", path, err)
	}

	if f.BatchSize < 0 {
		return nil, errorf("%s: batch_size must not be negative", path)
	}
	if f.Parallel < 0 {
		return nil, errorf("%s: parallel must not be negative", path)
	}
	if f.Delay < 0 {
		return nil, errorf("%s: delay must not be negative", path)
	}
	return &f, nil
}
