// annotations.go defines the @oxy: annotations understood by the shader pre-processor.
// Annotations are single-line WGSL comments. They pull shared WGSL snippets into a shader and
// generate @group/@binding declarations so every pass declares shared resources identically.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects a named WGSL snippet at the annotation site. The snippet is
	// looked up in the includes registered with WithIncludes and is pre-processed itself.
	//
	// Syntax: //@oxy:include <name>
	//
	// Example: //@oxy:include cluster
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a @group/@binding variable declaration and records the
	// annotation in the pre-processor's declaration list.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <wgsl_type>
	//
	// Example: //@oxy:group 0 1 storage_read lightSet LightSet
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// AddressSpace is the address space argument of a group annotation.
type AddressSpace string

const (
	// AddressSpaceUniform declares a var<uniform> binding.
	AddressSpaceUniform AddressSpace = "uniform"

	// AddressSpaceStorageRead declares a var<storage, read> binding.
	AddressSpaceStorageRead AddressSpace = "storage_read"

	// AddressSpaceStorageReadWrite declares a var<storage, read_write> binding.
	AddressSpaceStorageReadWrite AddressSpace = "storage_read_write"
)

// addressSpaceSyntax maps each AddressSpace to its WGSL var<> syntax.
var addressSpaceSyntax = map[AddressSpace]string{
	AddressSpaceUniform:          "var<uniform>",
	AddressSpaceStorageRead:      "var<storage, read>",
	AddressSpaceStorageReadWrite: "var<storage, read_write>",
}

// Annotation is a single parsed @oxy: annotation.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Name is the include name for include annotations and the variable name for group annotations.
	Name string

	// Line is the 1-based line number within the source the annotation was found in.
	Line int

	// Group and Binding are set for group annotations.
	Group   int
	Binding int

	// AddressSpace and WGSLType are set for group annotations.
	AddressSpace AddressSpace
	WGSLType     string
}

// Declaration renders a group annotation as its WGSL variable declaration.
//
// Returns:
//   - string: the generated declaration, e.g. "@group(0) @binding(1) var<storage, read> lightSet: LightSet;"
func (a Annotation) Declaration() string {
	return fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
		a.Group, a.Binding, addressSpaceSyntax[a.AddressSpace], a.Name, a.WGSLType)
}

// parseAnnotation parses a single line of WGSL source as an @oxy: annotation. Lines without the
// prefix return nil and no error.
//
// Parameters:
//   - line: the WGSL source line, after variable substitution
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy:include requires exactly one argument", lineNum)
		}
		return &Annotation{Type: AnnotationTypeInclude, Name: args[1], Line: lineNum}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy:group requires group, binding, address space, name and type", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil || group < 0 {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy:group", lineNum, args[1])
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil || binding < 0 {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy:group", lineNum, args[2])
		}
		space := AddressSpace(args[3])
		if !slices.Contains([]AddressSpace{AddressSpaceUniform, AddressSpaceStorageRead, AddressSpaceStorageReadWrite}, space) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy:group", lineNum, args[3])
		}
		return &Annotation{
			Type:         AnnotationTypeBindingGroup,
			Name:         args[4],
			Line:         lineNum,
			Group:        group,
			Binding:      binding,
			AddressSpace: space,
			WGSLType:     args[5],
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
