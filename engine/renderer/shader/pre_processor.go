// pre_processor.go implements the Oxy WGSL shader pre-processor. Before a shader is reflected
// and validated the pre-processor:
//   - substitutes ${name} variables (grid sizes, workgroup sizes, group indices, constants)
//   - replaces //@oxy:include lines with the named snippet, recursively and at most once per snippet
//   - replaces //@oxy:group lines with generated @group/@binding declarations
//
// Snippets are supplied by the caller, so the package never imports the GPU type packages whose
// WGSL it assembles.
package shader

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrUndefinedVariable is returned when a ${name} reference has no value.
	ErrUndefinedVariable = errors.New("undefined shader variable")

	// ErrUnknownInclude is returned when an @oxy:include names no registered snippet.
	ErrUnknownInclude = errors.New("unknown shader include")

	// ErrIncludeCycle is returned when snippets include each other.
	ErrIncludeCycle = errors.New("shader include cycle")
)

var variableRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	includes map[string]string
	vars     map[string]string

	// declarations accumulates group annotations during a Process call.
	declarations []Annotation
	// included holds the snippets already spliced in during a Process call.
	included map[string]bool
}

// PreProcessor expands variables and @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process expands the source. The declarations list is reset at the start of each call.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the expanded WGSL source
	//   - error: a wrapped ErrUndefinedVariable, ErrUnknownInclude or ErrIncludeCycle, or a
	//     malformed annotation error
	Process(source string) (string, error)

	// Declarations returns the group annotations collected by the most recent Process call, in
	// source order, includes expanded in place.
	//
	// Returns:
	//   - []Annotation: the collected declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor.
//
// Parameters:
//   - includes: snippet sources keyed by include name
//   - vars: substitution values keyed by variable name
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(includes, vars map[string]string) PreProcessor {
	return &preProcessor{includes: includes, vars: vars}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	p.included = make(map[string]bool)
	return p.expand(source, "", nil)
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

// expand processes one source unit. name is the include name, empty for the root source, and
// stack holds the includes currently being expanded.
func (p *preProcessor) expand(source, name string, stack []string) (string, error) {
	source, err := p.substitute(source, name)
	if err != nil {
		return "", err
	}

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", wrapUnit(name, err)
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypeInclude:
			for _, open := range stack {
				if open == a.Name {
					return "", fmt.Errorf("%w: %s -> %s", ErrIncludeCycle, strings.Join(stack, " -> "), a.Name)
				}
			}
			if p.included[a.Name] {
				continue
			}
			inc, ok := p.includes[a.Name]
			if !ok {
				return "", wrapUnit(name, fmt.Errorf("line %d: %w %q", a.Line, ErrUnknownInclude, a.Name))
			}
			p.included[a.Name] = true
			expanded, err := p.expand(inc, a.Name, append(stack, a.Name))
			if err != nil {
				return "", err
			}
			out = append(out, expanded)
		case AnnotationTypeBindingGroup:
			out = append(out, a.Declaration())
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

// substitute replaces every ${name} reference, failing on the first undefined one.
func (p *preProcessor) substitute(source, unit string) (string, error) {
	var missing string
	out := variableRegex.ReplaceAllStringFunc(source, func(ref string) string {
		key := variableRegex.FindStringSubmatch(ref)[1]
		v, ok := p.vars[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return ref
		}
		return v
	})
	if missing != "" {
		return "", wrapUnit(unit, fmt.Errorf("%w %q", ErrUndefinedVariable, missing))
	}
	return out, nil
}

func wrapUnit(unit string, err error) error {
	if unit == "" {
		return err
	}
	return fmt.Errorf("include %q: %w", unit, err)
}
