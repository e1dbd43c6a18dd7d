package shader

import "maps"

// ShaderBuilderOption is a function that configures a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithIncludes registers WGSL snippets available to //@oxy:include. Repeated options merge,
// later names replacing earlier ones.
//
// Parameters:
//   - includes: snippet sources keyed by include name
//
// Returns:
//   - ShaderBuilderOption: a function that registers the includes
func WithIncludes(includes map[string]string) ShaderBuilderOption {
	return func(s *shader) {
		if s.includes == nil {
			s.includes = make(map[string]string, len(includes))
		}
		maps.Copy(s.includes, includes)
	}
}

// WithVars sets ${name} substitution values. Repeated options merge.
//
// Parameters:
//   - vars: substitution values keyed by variable name
//
// Returns:
//   - ShaderBuilderOption: a function that registers the variables
func WithVars(vars map[string]string) ShaderBuilderOption {
	return func(s *shader) {
		if s.vars == nil {
			s.vars = make(map[string]string, len(vars))
		}
		maps.Copy(s.vars, vars)
	}
}

// WithValidation enables naga validation of the pre-processed source.
//
// Parameters:
//   - enabled: whether to validate
//
// Returns:
//   - ShaderBuilderOption: a function that sets the validation flag
func WithValidation(enabled bool) ShaderBuilderOption {
	return func(s *shader) {
		s.validate = enabled
	}
}
