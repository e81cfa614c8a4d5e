// Package config loads the optional .abyss.json file that tunes the abyss CLI.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = ".abyss.json"

//go:embed schema.json
var schemaJSON []byte

// Config holds the CLI settings. Command-line flags override these values.
type Config struct {
	Color       string `json:"color"`
	Debug       bool   `json:"debug"`
	HistoryFile string `json:"history_file"`
	Prompt      string `json:"prompt"`
	Requires    string `json:"requires"`

	// Path is the file the values came from; empty for defaults.
	Path string `json:"-"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		Color:  "auto",
		Prompt: "abyss> ",
	}
}

// Load reads path, or DefaultFile when path is empty. A missing DefaultFile
// yields Default; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse validates data against the embedded schema and overlays it on Default.
func Parse(data []byte) (*Config, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if compiler.Formats == nil {
		compiler.Formats = make(map[string]func(interface{}) bool)
	}
	compiler.Formats["semver"] = func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true // type is checked by the schema itself
		}
		return semver.IsValid(canonicalVersion(s))
	}

	const url = "schema://abyss-config.json"
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
})

// canonicalVersion accepts versions with or without the leading "v".
func canonicalVersion(s string) string {
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	return s
}

// CheckVersion fails when the configuration requires a newer abyss than current.
// Development builds, whose version is not semver, always pass.
func (c *Config) CheckVersion(current string) error {
	if c.Requires == "" {
		return nil
	}
	have := canonicalVersion(current)
	if !semver.IsValid(have) {
		return nil
	}
	if semver.Compare(have, canonicalVersion(c.Requires)) < 0 {
		return fmt.Errorf("configuration requires abyss %s or newer, running %s", c.Requires, current)
	}
	return nil
}

// HistoryPath resolves the REPL history file, expanding a leading "~/".
// It defaults to ~/.abyss_history and is empty when no home directory exists.
func (c *Config) HistoryPath() string {
	path := c.HistoryFile
	if path == "" {
		path = "~/.abyss_history"
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, rest)
	}
	return path
}
