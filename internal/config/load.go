package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// restartMarker is the first character of the marker field of a
// restartable process.
const restartMarker = 'R'

// Load reads a configuration file and returns its process specs in file
// order, along with any warnings. Files ending in .toml are decoded as TOML,
// everything else uses the line format.
func Load(path string) ([]ProcessSpec, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: cannot read config: %s: %w", ErrInvalid, path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return LoadTOML(data, path)
	}
	specs, err := LoadBytes(data, path)
	return specs, nil, err
}

// LoadBytes parses the line format. Each non-blank line holds a marker
// field, the executable path, and any extra arguments separated by
// whitespace. The path argument is used only for error messages.
func LoadBytes(data []byte, path string) ([]ProcessSpec, error) {
	var (
		specs []ProcessSpec
		errs  []error
	)

	for i, line := range strings.Split(string(data), "\n") {
		fields := strings.FieldsFunc(line, isSeparator)
		if len(fields) == 0 {
			continue
		}
		lineNo := i + 1
		if len(fields) < 2 {
			errs = append(errs, fmt.Errorf("line %d: expected a marker and an executable path, got %d field", lineNo, len(fields)))
			continue
		}
		specs = append(specs, ProcessSpec{
			Path:        fields[1],
			Args:        fields[1:],
			Restartable: fields[0][0] == restartMarker,
			Line:        lineNo,
		})
	}

	errs = append(errs, Validate(specs)...)
	if len(errs) > 0 {
		return nil, joinErrors(path, errs)
	}
	return specs, nil
}

// LoadTOML decodes the TOML format: an array of [[process]] tables with
// path, args and restart keys. Unknown keys are returned as warnings.
func LoadTOML(data []byte, path string) ([]ProcessSpec, []string, error) {
	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: config parse error in %s: %w", ErrInvalid, path, err)
	}

	var warnings []string
	for _, key := range md.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown config key: %s", strings.Join(key, ".")))
	}

	var errs []error
	specs := make([]ProcessSpec, 0, len(f.Process))
	for i, p := range f.Process {
		if strings.TrimSpace(p.Path) == "" {
			errs = append(errs, fmt.Errorf("process[%d]: path is required", i))
			continue
		}
		args := append([]string{p.Path}, p.Args...)
		specs = append(specs, ProcessSpec{
			Path:        p.Path,
			Args:        args,
			Restartable: p.Restart,
		})
	}

	errs = append(errs, Validate(specs)...)
	if len(errs) > 0 {
		return nil, warnings, joinErrors(path, errs)
	}
	return specs, warnings, nil
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}

func joinErrors(path string, errs []error) error {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%w: config validation failed in %s:\n  %s",
		ErrInvalid, path, strings.Join(msgs, "\n  "))
}
