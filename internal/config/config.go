// Package config loads site files: everything the crawler needs to know
// about one listing site, from its search URL to its extraction schema.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/DruizrGit/CondoPricePrediction/internal/crawler"
	"github.com/DruizrGit/CondoPricePrediction/pkg/fetcher"
	"github.com/DruizrGit/CondoPricePrediction/pkg/schema"
)

// ErrInvalid is wrapped by every validation failure returned from Load.
var ErrInvalid = errors.New("invalid site file")

// Site describes one listing site.
type Site struct {
	Name    string     `json:"name" yaml:"name" validate:"required"`
	Crawl   Crawl      `json:"crawl" yaml:"crawl"`
	Fetch   Fetch      `json:"fetch,omitempty" yaml:"fetch,omitempty"`
	Columns []string   `json:"columns,omitempty" yaml:"columns,omitempty" validate:"dive,required"`
	Schema  schema.Set `json:"schema" yaml:"schema" validate:"-"`
}

// Crawl holds the pagination and link-selection settings.
type Crawl struct {
	PageURL     string            `json:"page_url" yaml:"page_url" validate:"required,page_template"`
	Search      string            `json:"search,omitempty" yaml:"search,omitempty"`
	FirstPage   int               `json:"first_page,omitempty" yaml:"first_page,omitempty" validate:"min=0"` // 0 means 1
	Pages       int               `json:"pages,omitempty" yaml:"pages,omitempty" validate:"min=0"`
	MaxPerPage  int               `json:"max_per_page,omitempty" yaml:"max_per_page,omitempty" validate:"min=0"`
	Links       *schema.Locator   `json:"links,omitempty" yaml:"links,omitempty"`
	LinkPattern string            `json:"link_pattern,omitempty" yaml:"link_pattern,omitempty"`
	Next        *schema.Locator   `json:"next,omitempty" yaml:"next,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Timeout     Duration          `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"min=0"`
}

// Fetch holds fetcher settings a site may need.
type Fetch struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty" validate:"omitempty,oneof=static dynamic"`
	UserAgent string   `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	WaitFor   string   `json:"wait_for,omitempty" yaml:"wait_for,omitempty"`
	Wait      Duration `json:"wait,omitempty" yaml:"wait,omitempty" validate:"min=0"`
}

// Duration is a time.Duration written as a Go duration string ("5s", "1m30s").
type Duration time.Duration

// UnmarshalYAML accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return d.parse(string(data))
	}
	return d.parse(s)
}

// MarshalJSON writes the duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	if v, err := time.ParseDuration(s); err == nil {
		*d = Duration(v)
		return nil
	}
	var secs float64
	if _, err := fmt.Sscanf(s, "%g", &secs); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	return fmt.Errorf("invalid duration %q", s)
}

// Load reads, decodes and validates a site file. The format follows the
// file extension: .yaml, .yml or .json.
func Load(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site file: %w", err)
	}

	var site *Site
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		site, err = FromYAML(data)
	case ".json":
		site, err = FromJSON(data)
	default:
		return nil, fmt.Errorf("unsupported site file format: %s", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := site.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return site, nil
}

// FromYAML decodes a site without validating it.
func FromYAML(data []byte) (*Site, error) {
	var s Site
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML site file: %w", err)
	}
	return &s, nil
}

// FromJSON decodes a site without validating it.
func FromJSON(data []byte) (*Site, error) {
	var s Site
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse JSON site file: %w", err)
	}
	return &s, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("page_template", func(fl validator.FieldLevel) bool {
		return validPageTemplate(fl.Field().String())
	})
	return v
}

// validPageTemplate reports whether the template becomes an absolute
// http(s) URL once its placeholders are filled in.
func validPageTemplate(tmpl string) bool {
	filled := strings.NewReplacer(crawler.SearchPlaceholder, "x", crawler.PagePlaceholder, "1").Replace(tmpl)
	u, err := url.Parse(filled)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Validate checks the site settings, the schema and the column list.
// Failures are reported together as schema.ValidationErrors wrapped in ErrInvalid.
func (s *Site) Validate() error {
	var errs schema.ValidationErrors

	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		for _, e := range fieldErrs {
			errs = append(errs, schema.ValidationError{
				Field:   fieldPath(e.Namespace()),
				Message: message(e),
				Value:   e.Value(),
			})
		}
	}

	if s.Crawl.Next == nil && s.Crawl.PageURL != "" && !strings.Contains(s.Crawl.PageURL, crawler.PagePlaceholder) {
		errs = append(errs, schema.ValidationError{
			Field:   "crawl.page_url",
			Message: fmt.Sprintf("must contain %s unless crawl.next is set", crawler.PagePlaceholder),
			Value:   s.Crawl.PageURL,
		})
	}

	if err := s.Schema.Validate(); err != nil {
		var schemaErrs schema.ValidationErrors
		if errors.As(err, &schemaErrs) {
			for _, e := range schemaErrs {
				e.Field = "schema." + e.Field
				errs = append(errs, e)
			}
		} else {
			errs = append(errs, schema.ValidationError{Field: "schema", Message: err.Error()})
		}
	}
	if len(s.Schema.Fields) == 0 && len(s.Schema.Containers) == 0 {
		errs = append(errs, schema.ValidationError{Field: "schema", Message: "declares no fields or containers"})
	}

	known := make(map[string]bool)
	for _, name := range s.Schema.OutputNames() {
		known[name] = true
	}
	seen := make(map[string]bool)
	for i, c := range s.Columns {
		field := fmt.Sprintf("columns[%d]", i)
		switch {
		case c == "":
		case seen[c]:
			errs = append(errs, schema.ValidationError{Field: field, Message: "is listed more than once", Value: c})
		case !known[c]:
			errs = append(errs, schema.ValidationError{Field: field, Message: "is not produced by the schema", Value: c})
		}
		seen[c] = true
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errs)
}

// fieldPath turns a validator namespace such as "Site.Crawl.PageURL" into
// the file key "crawl.page_url".
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] >= 'a' && s[i-1] <= 'z' {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	case "page_template":
		return "must be an absolute http(s) URL template"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// OutputColumns returns the configured column order, or every schema
// output in declaration order when none is configured.
func (s *Site) OutputColumns() []string {
	if len(s.Columns) > 0 {
		return append([]string(nil), s.Columns...)
	}
	return s.Schema.OutputNames()
}

// CrawlerConfig converts the crawl settings to a crawler configuration,
// starting from crawler.DefaultConfig.
func (s *Site) CrawlerConfig() crawler.Config {
	cfg := crawler.DefaultConfig()
	cfg.PageURL = s.Crawl.PageURL
	cfg.Search = s.Crawl.Search
	if s.Crawl.FirstPage > 0 {
		cfg.FirstPage = s.Crawl.FirstPage
	}
	cfg.Pages = s.Crawl.Pages
	cfg.MaxPerPage = s.Crawl.MaxPerPage
	if s.Crawl.Links != nil {
		cfg.Links = *s.Crawl.Links
	}
	cfg.LinkPattern = s.Crawl.LinkPattern
	cfg.Next = s.Crawl.Next
	cfg.Headers = s.Crawl.Headers
	if s.Crawl.Timeout > 0 {
		cfg.Timeout = time.Duration(s.Crawl.Timeout)
	}
	cfg.UserAgent = s.Fetch.UserAgent
	cfg.WaitFor = s.Fetch.WaitFor
	cfg.Wait = time.Duration(s.Fetch.Wait)
	return cfg
}

// FetchMode returns the fetcher type the site asks for, static by default.
func (s *Site) FetchMode() string {
	if s.Fetch.Mode == "" {
		return fetcher.TypeStatic
	}
	return s.Fetch.Mode
}
