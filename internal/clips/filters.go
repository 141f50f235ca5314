package clips

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NoFilter is the effective filter expression of a clip without filters
const NoFilter = "none"

// Filter is one CSS-like filter function, e.g. {"blur", "2px"}
type Filter struct {
	Name  string
	Value string
}

// Filters is an insertion-ordered mapping of filter name to value.
// It encodes as a JSON object and keeps key order across a round trip.
type Filters []Filter

// Presets lists the filter functions the editor offers, with their neutral values.
var Presets = Filters{
	{Name: "grayscale", Value: "0%"},
	{Name: "sepia", Value: "0%"},
	{Name: "blur", Value: "0px"},
	{Name: "invert", Value: "0%"},
	{Name: "hue-rotate", Value: "0deg"},
	{Name: "contrast", Value: "100%"},
	{Name: "brightness", Value: "100%"},
	{Name: "saturate", Value: "100%"},
}

// Get returns the value for name
func (fs Filters) Get(name string) (string, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Set returns a copy with name set to value. An existing entry keeps its position.
func (fs Filters) Set(name, value string) Filters {
	out := fs.Clone()
	for i := range out {
		if out[i].Name == name {
			out[i].Value = value
			return out
		}
	}
	return append(out, Filter{Name: name, Value: value})
}

// Delete returns a copy without name
func (fs Filters) Delete(name string) Filters {
	out := make(Filters, 0, len(fs))
	for _, f := range fs {
		if f.Name != name {
			out = append(out, f)
		}
	}
	return out
}

// Clone copies the slice
func (fs Filters) Clone() Filters {
	if fs == nil {
		return nil
	}
	return append(Filters(nil), fs...)
}

// Expression joins the filters as "name(value) name(value)". With no filters
// it falls back to the legacy effect string, then to NoFilter.
func (fs Filters) Expression(effect string) string {
	if len(fs) > 0 {
		parts := make([]string, len(fs))
		for i, f := range fs {
			parts[i] = fmt.Sprintf("%s(%s)", f.Name, f.Value)
		}
		return strings.Join(parts, " ")
	}
	if effect != "" {
		return effect
	}
	return NoFilter
}

func (fs Filters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
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

func (fs *Filters) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*fs = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("filters: expected object")
	}

	out := Filters{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("filters: expected string key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			// numbers are accepted and kept in their literal form
			value = string(raw)
		}
		out = out.Set(name, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*fs = out
	return nil
}
