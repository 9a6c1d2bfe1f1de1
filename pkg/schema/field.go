// Package schema provides the declarative descriptors that tell the
// extraction engine where each value lives in a listing page.
package schema

import "strings"

// TextMode selects how text is read from a located node.
type TextMode string

const (
	// TextOwn reads the node's single text string. A node with several
	// children, or with no text at all, has no own text.
	TextOwn TextMode = "own"
	// TextFull reads the concatenated text of all descendants.
	TextFull TextMode = "full"
)

// Field is a particular: a scalar value read straight from the document.
type Field struct {
	Name   string   `json:"name" yaml:"name" validate:"required"`
	Locate Locator  `json:"locate" yaml:"locate"`
	Child  *Locator `json:"child,omitempty" yaml:"child,omitempty"` // descend into this child before reading text
	Text   TextMode `json:"text,omitempty" yaml:"text,omitempty" validate:"omitempty,oneof=own full"`
}

// Mode returns the text mode used for the field. Without an explicit mode a
// field reads own text, or full text when it descends into a child.
func (f Field) Mode() TextMode {
	if f.Text != "" {
		return f.Text
	}
	if f.Child != nil {
		return TextFull
	}
	return TextOwn
}

// LabeledField locates one value inside a labeled container: the entry
// whose Key text equals Label provides the value found by Value.
type LabeledField struct {
	Label string  `json:"label" yaml:"label" validate:"required"`
	Name  string  `json:"name,omitempty" yaml:"name,omitempty"` // output name, defaults to Label without its trailing colon
	Key   Locator `json:"key" yaml:"key"`
	Value Locator `json:"value" yaml:"value"`
}

// OutputName returns the record key the field is written under.
func (f LabeledField) OutputName() string {
	if f.Name != "" {
		return f.Name
	}
	return strings.TrimSuffix(strings.TrimSpace(f.Label), ":")
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every problem found in a schema set.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
