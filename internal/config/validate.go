package config

import (
	"fmt"
	"strings"
)

// Validate checks the specs against the capacity limits and returns every
// violation found.
func Validate(specs []ProcessSpec) []error {
	var errs []error

	if len(specs) > MaxProcesses {
		errs = append(errs, fmt.Errorf("too many processes: %d, limit is %d", len(specs), MaxProcesses))
	}

	for i, s := range specs {
		prefix := fmt.Sprintf("process[%d]", i)
		if s.Line > 0 {
			prefix = fmt.Sprintf("line %d", s.Line)
		}

		if len(s.Path) > MaxPathLength {
			errs = append(errs, fmt.Errorf("%s: path is %d bytes, limit is %d", prefix, len(s.Path), MaxPathLength))
		}
		if strings.ContainsRune(s.Path, 0) {
			errs = append(errs, fmt.Errorf("%s: path contains a NUL byte", prefix))
		}
		if len(s.Args) > MaxArgs {
			errs = append(errs, fmt.Errorf("%s: %d arguments, limit is %d", prefix, len(s.Args), MaxArgs))
		}
		if len(s.Args) == 0 || s.Args[0] != s.Path {
			errs = append(errs, fmt.Errorf("%s: argv[0] must equal the path", prefix))
		}
	}

	return errs
}
