package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/applaunch/internal/model"
)

// Names of the optional configuration files, in lookup order.
const (
	FileYAML = "launcher.yaml"
	FileYML  = "launcher.yml"
	FileJSON = "launcher.json"
)

// GOOSWindows selects the batch-script flavoured defaults.
const GOOSWindows = "windows"

// Download pointers printed when a tool is missing.
const (
	pythonDownloadURL = "https://www.python.org/downloads/"
	pipDownloadURL    = "https://pip.pypa.io/en/stable/installation/"
)

// Tool describes how to find one external command.
type Tool struct {
	// DisplayName is the name shown in operator diagnostics (e.g., "Python").
	DisplayName string `yaml:"displayName" json:"displayName"`

	// Commands lists candidate command names or paths in priority order.
	// The first one that resolves and answers VersionArgs is used.
	Commands []string `yaml:"commands" json:"commands"`

	// VersionArgs is the argument list for the version query.
	// A command that fails this query is treated as missing.
	VersionArgs []string `yaml:"versionArgs" json:"versionArgs"`

	// DownloadURL is printed alongside the "missing" diagnostic.
	DownloadURL string `yaml:"downloadUrl" json:"downloadUrl"`
}

// Config holds every launcher setting. All paths are relative to the
// launcher's base directory.
type Config struct {
	Interpreter    Tool `yaml:"interpreter" json:"interpreter"`
	PackageManager Tool `yaml:"packageManager" json:"packageManager"`

	// Manifest is the dependency manifest consumed by the package manager.
	Manifest string `yaml:"manifest" json:"manifest"`

	// EntryPoint is the application script handed to the interpreter.
	EntryPoint string `yaml:"entryPoint" json:"entryPoint"`

	// InstallArgs precede the manifest path on the install command line.
	InstallArgs []string `yaml:"installArgs" json:"installArgs"`

	// Locale selects the language of operator diagnostics (BCP 47).
	Locale string `yaml:"locale" json:"locale"`
}

// Default returns the built-in configuration for the given GOOS.
//
// The Windows variant mirrors the batch script (python / pip); every other
// platform mirrors the shell script, preferring python3 / pip3 and falling
// back to the unversioned names.
func Default(goos string) *Config {
	cfg := &Config{
		Interpreter: Tool{
			DisplayName: "Python",
			Commands:    []string{"python3", "python"},
			VersionArgs: []string{"--version"},
			DownloadURL: pythonDownloadURL,
		},
		PackageManager: Tool{
			DisplayName: "pip",
			Commands:    []string{"pip3", "pip"},
			VersionArgs: []string{"--version"},
			DownloadURL: pipDownloadURL,
		},
		Manifest:    "requirements.txt",
		EntryPoint:  "app/main.py",
		InstallArgs: []string{"install", "--disable-pip-version-check", "--quiet", "-r"},
		Locale:      "zh-CN",
	}

	if goos == GOOSWindows {
		cfg.Interpreter.Commands = []string{"python"}
		cfg.PackageManager.Commands = []string{"pip"}
	}
	return cfg
}

// Find looks for a configuration file in baseDir.
//
// The search order is launcher.yaml, launcher.yml, launcher.json.
// Returns an empty path (and no error) when none exists, because every
// setting has a built-in default.
func Find(baseDir string) (string, error) {
	for _, name := range []string{FileYAML, FileYML, FileJSON} {
		path := filepath.Join(baseDir, name)
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return "", model.NewCLIError(model.ExitGeneralError,
					fmt.Sprintf("configuration path %s is a directory", path))
			}
			return path, nil
		}
		if !os.IsNotExist(err) {
			return "", model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("failed to stat %s", path), err)
		}
	}
	return "", nil
}

// Load returns the defaults for goos overlaid with the configuration file
// found in baseDir, along with the path of that file ("" if none).
func Load(baseDir, goos string) (*Config, string, error) {
	path, err := Find(baseDir)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		cfg := Default(goos)
		return cfg, "", cfg.Validate()
	}

	cfg, err := LoadFile(path, goos)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// LoadFile overlays the defaults for goos with the file at path.
//
// Files ending in .json are JSONC: comments and trailing commas are stripped
// with github.com/tidwall/jsonc before decoding. Anything else is YAML.
// Keys absent from the file keep their default values; lists given in the
// file replace the default list entirely.
func LoadFile(path, goos string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("configuration file not found: %s", path), err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg := Default(goos)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("failed to parse %s", path), err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty (or comment-only) document decodes to io.EOF; defaults apply.
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("failed to parse %s", path), err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid configuration in %s", path), err)
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a launch.
func (c *Config) Validate() error {
	if err := c.Interpreter.validate("interpreter"); err != nil {
		return err
	}
	if err := c.PackageManager.validate("packageManager"); err != nil {
		return err
	}
	if err := validateLocalPath("manifest", c.Manifest); err != nil {
		return err
	}
	if err := validateLocalPath("entryPoint", c.EntryPoint); err != nil {
		return err
	}
	return nil
}

func (t *Tool) validate(field string) error {
	if len(t.Commands) == 0 {
		return fmt.Errorf("%s.commands must list at least one command", field)
	}
	for i, c := range t.Commands {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%s.commands[%d] must not be empty", field, i)
		}
	}
	if t.DisplayName == "" {
		t.DisplayName = t.Commands[0]
	}
	return nil
}

// validateLocalPath rejects empty, absolute and escaping paths: the manifest
// and entry point always live under the launcher's own directory.
func validateLocalPath(field, p string) error {
	if p == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	if !filepath.IsLocal(filepath.FromSlash(p)) {
		return fmt.Errorf("%s %q must be a relative path inside the launcher directory", field, p)
	}
	return nil
}

// ManifestPath returns the absolute manifest path under baseDir.
func (c *Config) ManifestPath(baseDir string) string {
	return filepath.Join(baseDir, filepath.FromSlash(c.Manifest))
}

// EntryPointPath returns the absolute entry point path under baseDir.
func (c *Config) EntryPointPath(baseDir string) string {
	return filepath.Join(baseDir, filepath.FromSlash(c.EntryPoint))
}

// ResolveBaseDir returns the directory every relative path is resolved
// against.
//
// With an empty override this is the directory holding the launcher binary
// (symlinks followed), so a launcher started from any working directory, or
// double-clicked, finds the manifest sitting next to it.
func ResolveBaseDir(override string) (string, error) {
	if override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("invalid directory %q", override), err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("directory %s is not accessible", abs), err)
		}
		if !info.IsDir() {
			return "", model.NewCLIError(model.ExitGeneralError,
				fmt.Sprintf("%s is not a directory", abs))
		}
		return abs, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", model.WrapCLIError(model.ExitGeneralError,
			"cannot determine launcher location", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}
