package config

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             // Config field with issue (e.g., "inboxes[0].target")
	Message  string             // Human-readable description
	Severity ValidationSeverity // "error" or "warning"
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

// ValidateConfig checks the configuration against the filesystem and
// returns every finding rather than stopping at the first.
func ValidateConfig(cfg *Configuration) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
	}

	var all []ConfigValidationError
	all = append(all, ValidatePaths(cfg)...)
	all = append(all, ValidateLayout(cfg)...)
	all = append(all, ValidateCommands(cfg)...)

	for _, err := range all {
		if err.Severity == SeverityError {
			result.Errors = append(result.Errors, err)
		} else {
			result.Warnings = append(result.Warnings, err)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

type namedDir struct {
	field string
	path  string
}

func inboxDirs(i int, in Inbox) []namedDir {
	field := formatField("inboxes", i)
	dirs := []namedDir{
		{field + ".target", in.Target},
		{field + ".error", in.Error},
		{field + ".processing", in.Processing},
		{field + ".processed", in.Processed},
	}
	for name, dir := range in.Extra {
		dirs = append(dirs, namedDir{field + ".extra." + name, dir})
	}
	return dirs
}

// ValidatePaths checks that every configured directory exists and is a
// directory. The engine never creates them.
func ValidatePaths(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	for i, in := range cfg.Inboxes {
		for _, d := range inboxDirs(i, in) {
			if d.path == "" {
				continue
			}
			info, err := os.Stat(d.path)
			switch {
			case os.IsNotExist(err):
				errors = append(errors, ConfigValidationError{
					Field:    d.field,
					Message:  "directory does not exist: " + d.path,
					Severity: SeverityError,
				})
			case os.IsPermission(err):
				errors = append(errors, ConfigValidationError{
					Field:    d.field,
					Message:  "directory is not accessible: " + d.path,
					Severity: SeverityError,
				})
			case err != nil:
				errors = append(errors, ConfigValidationError{
					Field:    d.field,
					Message:  "error accessing directory: " + err.Error(),
					Severity: SeverityError,
				})
			case !info.IsDir():
				errors = append(errors, ConfigValidationError{
					Field:    d.field,
					Message:  "path is not a directory: " + d.path,
					Severity: SeverityError,
				})
			}
		}

		if in.LockFile == "" && in.Target != "" {
			parent := filepath.Dir(in.LockPath())
			if !isDirectoryWritable(parent) {
				errors = append(errors, ConfigValidationError{
					Field:    formatField("inboxes", i) + ".lockFile",
					Message:  "default lock location is not writable, set lockFile: " + parent,
					Severity: SeverityWarning,
				})
			}
		}
	}

	return errors
}

// ValidateLayout checks how directories relate to each other. Within one
// inbox the target must not coincide with or contain another directory,
// or files would be offered again after being moved. Two inboxes must not
// share a target.
func ValidateLayout(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	for i, in := range cfg.Inboxes {
		dirs := inboxDirs(i, in)
		target := dirs[0]
		for _, d := range dirs[1:] {
			if target.path == "" || d.path == "" {
				continue
			}
			if sameDir(target.path, d.path) {
				errors = append(errors, ConfigValidationError{
					Field:    d.field,
					Message:  "must differ from the target directory: " + d.path,
					Severity: SeverityError,
				})
			} else if directoriesOverlap(target.path, d.path) {
				errors = append(errors, ConfigValidationError{
					Field:    d.field,
					Message:  "nested with the target directory: " + d.path,
					Severity: SeverityWarning,
				})
			}
		}
	}

	for i := 0; i < len(cfg.Inboxes); i++ {
		for j := i + 1; j < len(cfg.Inboxes); j++ {
			a, b := cfg.Inboxes[i].Target, cfg.Inboxes[j].Target
			if a != "" && b != "" && sameDir(a, b) {
				errors = append(errors, ConfigValidationError{
					Field:    formatField("inboxes", j) + ".target",
					Message:  "target \"" + b + "\" is already used by inboxes[" + strconv.Itoa(i) + "]",
					Severity: SeverityError,
				})
			}
		}
	}

	return errors
}

// ValidateCommands warns about processor commands that cannot be found.
func ValidateCommands(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	for i, in := range cfg.Inboxes {
		if len(in.Command) == 0 || in.Command[0] == "" {
			continue
		}
		if _, err := lookPath(in.Command[0]); err != nil {
			errors = append(errors, ConfigValidationError{
				Field:    formatField("inboxes", i) + ".command",
				Message:  "command not found: " + in.Command[0],
				Severity: SeverityWarning,
			})
		}
	}

	return errors
}

// formatField creates a field reference string for validation errors.
func formatField(name string, index int) string {
	return name + "[" + strconv.Itoa(index) + "]"
}

// isDirectoryWritable checks if a directory is writable by attempting to create a temp file.
func isDirectoryWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".dropbox_write_test_*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

func sameDir(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// directoriesOverlap checks if two directories overlap (one is parent/ancestor of the other).
func directoriesOverlap(dir1, dir2 string) bool {
	clean1 := filepath.Clean(dir1)
	clean2 := filepath.Clean(dir2)

	if clean1 == clean2 {
		return true
	}
	if strings.HasPrefix(clean2, clean1+string(filepath.Separator)) {
		return true
	}
	if strings.HasPrefix(clean1, clean2+string(filepath.Separator)) {
		return true
	}
	return false
}
