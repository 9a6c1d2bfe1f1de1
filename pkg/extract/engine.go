// Package extract runs a schema set against a parsed listing page and
// produces one record of values, degrading every failure to a missing value.
package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/DruizrGit/CondoPricePrediction/pkg/schema"
)

// Engine extracts records with a fixed schema set. It holds no mutable
// state and may be shared.
type Engine struct {
	set schema.Set
}

// New creates an engine for the given schema set.
func New(set schema.Set) *Engine {
	return &Engine{set: set}
}

// Schema returns the schema set the engine extracts with.
func (e *Engine) Schema() schema.Set {
	return e.set
}

// Extract runs the schema set against a parsed document.
func (e *Engine) Extract(doc *goquery.Document) Result {
	return Extract(doc.Selection, e.set)
}

// ExtractReader parses HTML from r and extracts a record from it.
func (e *Engine) ExtractReader(r io.Reader) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}
	return e.Extract(doc), nil
}

// ExtractHTML parses an HTML string and extracts a record from it.
func (e *Engine) ExtractHTML(html string) (Result, error) {
	return e.ExtractReader(strings.NewReader(html))
}

// Extract produces a record holding one value per output name of set.
// Particulars are read first, then containers in declaration order.
func Extract(root *goquery.Selection, set schema.Set) Result {
	res := Result{Record: make(Record, len(set.Fields))}

	for _, f := range set.Fields {
		res.Record[f.Name] = res.particular(root, f)
	}

	for _, c := range set.Containers {
		switch c := c.(type) {
		case schema.LabeledContainer:
			res.labeled(root, c)
		case schema.RoomContainer:
			res.rooms(root, c)
		}
	}

	return res
}

func (r *Result) particular(root *goquery.Selection, f schema.Field) Value {
	node, err := Resolve(root, f.Locate)
	if err != nil {
		r.note(f.Name, err)
		return Missing()
	}

	if f.Child != nil {
		node, err = Resolve(node, *f.Child)
		if err != nil {
			r.note(f.Name, fmt.Errorf("child: %w", err))
			return Missing()
		}
	}

	text, err := ReadText(node, f.Mode())
	if err != nil {
		r.note(f.Name, err)
		return Missing()
	}
	return String(text)
}

// Locate finds the container box below root and verifies its title.
// A box whose title cannot be found, or reads differently from a non-empty
// expected label, counts as absent. An expected label with no title
// locator can never be verified and is a mismatch.
func Locate(root *goquery.Selection, h schema.Header) (*goquery.Selection, error) {
	box, err := Resolve(root, h.Box)
	if err != nil {
		return nil, fmt.Errorf("box: %w", err)
	}
	if h.Title == nil {
		if h.Label != "" {
			return nil, fmt.Errorf("%w: label %q has no title locator", ErrLabelMismatch, h.Label)
		}
		return box, nil
	}

	title, err := Resolve(box, *h.Title)
	if err != nil {
		return nil, fmt.Errorf("title: %w", err)
	}
	if h.Label == "" {
		return box, nil
	}

	want := strings.TrimSpace(h.Label)
	got, _ := ReadText(title, schema.TextFull)
	if got != want {
		return nil, fmt.Errorf("%w: title reads %q, want %q", ErrLabelMismatch, got, want)
	}
	return box, nil
}

// Entries enumerates the entry elements of a located container, in
// document order. With a list kind set, only entries inside the first list
// element count, and a missing list is a locator miss.
func Entries(box *goquery.Selection, h schema.Header) (*goquery.Selection, error) {
	scope := box
	if h.List != "" {
		list, err := Resolve(box, schema.At(h.List, 0))
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		scope = list
	}
	return ResolveAll(scope, schema.Locator{Kind: h.Entry}), nil
}

func (r *Result) labeled(root *goquery.Selection, c schema.LabeledContainer) {
	box, err := Locate(root, c.Header)
	var items *goquery.Selection
	if err == nil {
		items, err = Entries(box, c.Header)
	}
	if err != nil {
		r.note(c.Name, err)
		for _, f := range c.Entries {
			r.Record[f.OutputName()] = Missing()
		}
		return
	}

	for _, f := range c.Entries {
		r.Record[f.OutputName()] = r.scan(items, f)
	}
}

// scan walks the entries in document order; the first entry whose key text
// equals the label decides the value, even when its value cannot be read.
func (r *Result) scan(items *goquery.Selection, f schema.LabeledField) Value {
	name := f.OutputName()
	want := strings.TrimSpace(f.Label)

	for i := 0; i < items.Length(); i++ {
		item := items.Eq(i)

		key, err := Resolve(item, f.Key)
		if err != nil {
			continue
		}
		if label, err := ReadText(key, schema.TextOwn); err != nil || label != want {
			continue
		}

		value, err := Resolve(item, f.Value)
		if err != nil {
			r.note(name, fmt.Errorf("value: %w", err))
			return Missing()
		}
		text, err := ReadText(value, schema.TextOwn)
		if err != nil {
			r.note(name, err)
			return Missing()
		}
		return String(text)
	}

	r.note(name, fmt.Errorf("%w: no entry labeled %q", ErrLocatorMiss, want))
	return Missing()
}

func (r *Result) rooms(root *goquery.Selection, c schema.RoomContainer) {
	storeys, area := c.Rooms.StoreysName(), c.Rooms.AreaName()

	box, err := Locate(root, c.Header)
	var items *goquery.Selection
	if err == nil {
		items, err = Entries(box, c.Header)
	}
	if err != nil {
		r.note(c.Name, err)
		r.Record[storeys] = Missing()
		r.Record[area] = Missing()
		return
	}

	rooms, diags := ComputeRooms(items, c.Rooms)
	r.Diagnostics = append(r.Diagnostics, diags...)
	r.Record[storeys] = Int(rooms.Storeys)
	r.Record[area] = rooms.FloorArea
}
