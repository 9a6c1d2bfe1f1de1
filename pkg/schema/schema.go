package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Set is the complete extraction schema for one site: the particulars read
// straight from the page and the containers grouping the rest. A Set is
// built once and shared, read-only, by every extraction.
type Set struct {
	Fields     []Field
	Containers []Container
}

type setDoc struct {
	Fields     []Field        `json:"fields,omitempty" yaml:"fields,omitempty"`
	Containers []containerDoc `json:"containers,omitempty" yaml:"containers,omitempty"`
}

func (d setDoc) set() (Set, error) {
	s := Set{Fields: d.Fields}
	for _, cd := range d.Containers {
		c, err := cd.container()
		if err != nil {
			return Set{}, err
		}
		s.Containers = append(s.Containers, c)
	}
	return s, nil
}

func (s Set) doc() setDoc {
	d := setDoc{Fields: s.Fields}
	for _, c := range s.Containers {
		d.Containers = append(d.Containers, docOf(c))
	}
	return d
}

// UnmarshalYAML decodes a set, selecting each container variant by its kind.
func (s *Set) UnmarshalYAML(node *yaml.Node) error {
	var d setDoc
	if err := node.Decode(&d); err != nil {
		return err
	}
	decoded, err := d.set()
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}

// MarshalYAML encodes the set in its file form.
func (s Set) MarshalYAML() (any, error) {
	return s.doc(), nil
}

// UnmarshalJSON decodes a set, selecting each container variant by its kind.
func (s *Set) UnmarshalJSON(data []byte) error {
	var d setDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	decoded, err := d.set()
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}

// MarshalJSON encodes the set in its file form.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.doc())
}

// FromFile loads a schema set from a JSON or YAML file.
func FromFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("failed to read schema file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FromJSON(data)
	case ".yaml", ".yml":
		return FromYAML(data)
	default:
		return Set{}, fmt.Errorf("unsupported schema file format: %s", ext)
	}
}

// FromJSON creates a schema set from JSON data.
func FromJSON(data []byte) (Set, error) {
	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return Set{}, fmt.Errorf("failed to parse JSON schema: %w", err)
	}
	return s, nil
}

// FromYAML creates a schema set from YAML data.
func FromYAML(data []byte) (Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Set{}, fmt.Errorf("failed to parse YAML schema: %w", err)
	}
	return s, nil
}

// OutputNames lists every record key the set produces, in declaration order.
func (s Set) OutputNames() []string {
	var names []string
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	for _, c := range s.Containers {
		names = append(names, c.Outputs()...)
	}
	return names
}

// Validate checks struct constraints, that every container label has a
// title to verify it against, and that output names are unique.
// It returns ValidationErrors when anything is wrong.
func (s Set) Validate() error {
	v := validator.New()
	var errs ValidationErrors

	for i, f := range s.Fields {
		errs = append(errs, structErrors(v, fmt.Sprintf("fields[%d]", i), f)...)
	}
	for i, c := range s.Containers {
		prefix := fmt.Sprintf("containers[%d]", i)
		errs = append(errs, structErrors(v, prefix, c)...)
		if h := c.Head(); h.Label != "" && h.Title == nil {
			errs = append(errs, ValidationError{
				Field:   prefix + ".Title",
				Message: "is required when label is set",
				Value:   h.Label,
			})
		}
	}

	seen := make(map[string]bool)
	for _, name := range s.OutputNames() {
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   name,
				Message: "output name is declared more than once",
			})
		}
		seen[name] = true
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func structErrors(v *validator.Validate, prefix string, data any) []ValidationError {
	err := v.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: prefix, Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		out = append(out, ValidationError{
			Field:   prefix + "." + stripRoot(e.Namespace()),
			Message: formatValidationError(e),
			Value:   e.Value(),
		})
	}
	return out
}

// stripRoot drops the struct type name validator puts in front of a namespace.
func stripRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
