package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// ErrShaderValidation is returned when WGSL source fails to parse, lower or validate.
var ErrShaderValidation = errors.New("shader validation failed")

// ValidateWGSL runs the source through the naga front end and IR validator.
//
// Parameters:
//   - label: the name used in error messages
//   - source: the pre-processed WGSL source
//
// Returns:
//   - error: a wrapped ErrShaderValidation describing the first problem, or nil
func ValidateWGSL(label, source string) error {
	ast, err := naga.Parse(source)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrShaderValidation, label, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrShaderValidation, label, err)
	}
	problems, err := naga.Validate(module)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrShaderValidation, label, err)
	}
	if len(problems) > 0 {
		errs := make([]error, 0, len(problems))
		for _, p := range problems {
			errs = append(errs, p)
		}
		return fmt.Errorf("%w: %s: %w", ErrShaderValidation, label, errors.Join(errs...))
	}
	return nil
}
