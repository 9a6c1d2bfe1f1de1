package output

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/DruizrGit/CondoPricePrediction/pkg/extract"
)

// layout is the fixed column order shared by every row of one output.
type layout struct {
	urlColumn string
	columns   []string
}

func newLayout(urlColumn string, columns []string) layout {
	return layout{urlColumn: urlColumn, columns: append([]string(nil), columns...)}
}

// header returns the column names, URL first when enabled.
func (l layout) header() []string {
	out := make([]string, 0, len(l.columns)+1)
	if l.urlColumn != "" {
		out = append(out, l.urlColumn)
	}
	return append(out, l.columns...)
}

func (l layout) order(row Row) orderedRow {
	o := orderedRow{keys: l.header()}
	o.values = make([]extract.Value, 0, len(o.keys))
	if l.urlColumn != "" {
		v := extract.Missing()
		if row.URL != "" {
			v = extract.String(row.URL)
		}
		o.values = append(o.values, v)
	}
	for _, c := range l.columns {
		o.values = append(o.values, row.Record.Get(c))
	}
	return o
}

// cells renders a row as strings; missing values render empty.
func (l layout) cells(row Row) []string {
	o := l.order(row)
	out := make([]string, len(o.values))
	for i, v := range o.values {
		out[i] = v.String()
	}
	return out
}

// orderedRow is a record that keeps its column order when encoded.
type orderedRow struct {
	keys   []string
	values []extract.Value
}

// MarshalJSON encodes the row as an object with keys in column order.
func (o orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the row as a mapping with keys in column order.
func (o orderedRow) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i, k := range o.keys {
		val := &yaml.Node{}
		if err := val.Encode(o.values[i].Any()); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			val,
		)
	}
	return node, nil
}
