// Package config handles configuration loading and validation for dropbox.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"dropbox/internal/dropbox"
	"dropbox/internal/filelock"
	"dropbox/internal/logging"
)

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidYAML     ConfigErrorType = "INVALID_YAML"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		if e.Message != "" {
			return fmt.Sprintf("configuration file not readable: %s: %s", e.Path, e.Message)
		}
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidYAML:
		return fmt.Sprintf("invalid YAML in configuration file: %s", e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// Inbox configures one drop-box.
type Inbox struct {
	Name              string            `yaml:"name"`
	Target            string            `yaml:"target"`
	Error             string            `yaml:"error"`
	Processing        string            `yaml:"processing"`
	Processed         string            `yaml:"processed"`
	Extra             map[string]string `yaml:"extra,omitempty"`
	Filter            string            `yaml:"filter,omitempty"`         // regular expression on the file name
	IgnorePatterns    []string          `yaml:"ignorePatterns,omitempty"` // globs on the file name
	IntervalMs        int               `yaml:"intervalMs,omitempty"`
	WakeOnCreate      bool              `yaml:"wakeOnCreate,omitempty"`
	StableThresholdMs int               `yaml:"stableThresholdMs,omitempty"`
	LockFile          string            `yaml:"lockFile,omitempty"`
	Command           []string          `yaml:"command,omitempty"`
	CommandTimeoutMs  int               `yaml:"commandTimeoutMs,omitempty"`
}

// Configuration holds all settings for dropbox.
type Configuration struct {
	LogLevel    string  `yaml:"logLevel,omitempty"`
	Journal     string  `yaml:"journal,omitempty"`     // JSONL journal path, empty disables it
	JournalHash bool    `yaml:"journalHash,omitempty"` // record SHA-256 of claimed files
	Inboxes     []Inbox `yaml:"inboxes"`
}

// Dirs returns the inbox directories in the form dropbox.New expects.
func (in *Inbox) Dirs() dropbox.Dirs {
	return dropbox.Dirs{
		Target:     in.Target,
		Error:      in.Error,
		Processing: in.Processing,
		Processed:  in.Processed,
		Extra:      in.Extra,
	}
}

// Interval returns the poll interval.
func (in *Inbox) Interval() time.Duration {
	return time.Duration(in.IntervalMs) * time.Millisecond
}

// StableThreshold returns how long a file's size must be unchanged before
// it is claimed. Zero disables the check.
func (in *Inbox) StableThreshold() time.Duration {
	return time.Duration(in.StableThresholdMs) * time.Millisecond
}

// CommandTimeout returns the processor timeout. Zero means no limit.
func (in *Inbox) CommandTimeout() time.Duration {
	return time.Duration(in.CommandTimeoutMs) * time.Millisecond
}

// LockPath returns the instance lock file. Unless configured it sits next
// to the target directory, never inside it, so it is not picked up as work.
func (in *Inbox) LockPath() string {
	if in.LockFile != "" {
		return in.LockFile
	}
	return filepath.Clean(in.Target) + ".lock"
}

// Inbox returns the inbox with the given name.
func (c *Configuration) Inbox(name string) (*Inbox, bool) {
	for i := range c.Inboxes {
		if c.Inboxes[i].Name == name {
			return &c.Inboxes[i], true
		}
	}
	return nil, false
}

// InboxNames returns the inbox names in configuration order.
func (c *Configuration) InboxNames() []string {
	names := make([]string, len(c.Inboxes))
	for i, in := range c.Inboxes {
		names[i] = in.Name
	}
	return names
}

// ApplyDefaults fills in the log level, inbox names and poll intervals.
// An unnamed inbox takes the base name of its target directory.
func (c *Configuration) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	for i := range c.Inboxes {
		in := &c.Inboxes[i]
		if in.Name == "" && in.Target != "" {
			in.Name = filepath.Base(filepath.Clean(in.Target))
		}
		if in.IntervalMs == 0 {
			in.IntervalMs = int(dropbox.DefaultInterval / time.Millisecond)
		}
	}
}

// Validate checks that the configuration has all required fields and that
// every value is well-formed. It does not touch the filesystem; see
// ValidateConfig for that.
func (c *Configuration) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return &ConfigError{Type: ValidationError, Message: err.Error()}
	}
	if len(c.Inboxes) == 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "inboxes must contain at least one inbox",
		}
	}

	seen := make(map[string]int)
	for i, in := range c.Inboxes {
		field := formatField("inboxes", i)
		if in.Name == "" {
			return &ConfigError{Type: ValidationError, Message: field + ".name cannot be empty"}
		}
		if first, dup := seen[in.Name]; dup {
			return &ConfigError{
				Type:    ValidationError,
				Message: fmt.Sprintf("%s.name %q duplicates inboxes[%d]", field, in.Name, first),
			}
		}
		seen[in.Name] = i

		for _, d := range []struct{ key, val string }{
			{"target", in.Target},
			{"error", in.Error},
			{"processing", in.Processing},
			{"processed", in.Processed},
		} {
			if d.val == "" {
				return &ConfigError{Type: ValidationError, Message: fmt.Sprintf("%s.%s cannot be empty", field, d.key)}
			}
		}
		for name, dir := range in.Extra {
			if name == "" || dir == "" {
				return &ConfigError{Type: ValidationError, Message: field + ".extra entries need a name and a directory"}
			}
		}

		for _, d := range []struct {
			key string
			val int
		}{
			{"intervalMs", in.IntervalMs},
			{"stableThresholdMs", in.StableThresholdMs},
			{"commandTimeoutMs", in.CommandTimeoutMs},
		} {
			if d.val < 0 {
				return &ConfigError{Type: ValidationError, Message: fmt.Sprintf("%s.%s must be non-negative", field, d.key)}
			}
		}

		if in.Filter != "" {
			if _, err := regexp.Compile(in.Filter); err != nil {
				return &ConfigError{Type: ValidationError, Message: fmt.Sprintf("%s.filter: %v", field, err)}
			}
		}
		for j, p := range in.IgnorePatterns {
			if _, err := filepath.Match(p, ""); err != nil {
				return &ConfigError{Type: ValidationError, Message: fmt.Sprintf("%s.ignorePatterns[%d]: %v", field, j, err)}
			}
		}
		if len(in.Command) > 0 && in.Command[0] == "" {
			return &ConfigError{Type: ValidationError, Message: field + ".command[0] cannot be empty"}
		}
	}

	return nil
}

// Parse decodes YAML, applies defaults and validates. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func Parse(data []byte) (*Configuration, error) {
	var config Configuration
	if err := decodeStrict(data, &config); err != nil {
		return nil, &ConfigError{Type: InvalidYAML, Message: err.Error()}
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Load reads and parses a configuration file from the given path.
func Load(filePath string) (*Configuration, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Type: FileNotFound, Path: filePath}
		}
		return nil, &ConfigError{Type: FileNotFound, Path: filePath, Message: err.Error()}
	}

	cfg, err := Parse(data)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Path = filePath
		}
		return nil, err
	}
	return cfg, nil
}

// Save serializes config and writes it atomically to filePath.
func Save(config *Configuration, filePath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return &ConfigError{Type: InvalidYAML, Message: err.Error()}
	}

	if err := filelock.AtomicWrite(filePath, data, 0644); err != nil {
		return &ConfigError{
			Type:    ValidationError,
			Path:    filePath,
			Message: fmt.Sprintf("failed to write configuration file: %s", err.Error()),
		}
	}
	return nil
}

// Sample returns a starting configuration with a single inbox rooted at
// root.
func Sample(root string) *Configuration {
	return &Configuration{
		LogLevel: "info",
		Journal:  filepath.Join(root, "journal.jsonl"),
		Inboxes: []Inbox{{
			Name:           "inbox",
			Target:         filepath.Join(root, "inbox"),
			Error:          filepath.Join(root, "error"),
			Processing:     filepath.Join(root, "processing"),
			Processed:      filepath.Join(root, "processed"),
			IgnorePatterns: []string{"*.tmp", "*.part"},
			IntervalMs:     int(dropbox.DefaultInterval / time.Millisecond),
		}},
	}
}

func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("configuration is empty")
		}
		return err
	}
	return nil
}
