package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Row is one parsed spreadsheet record. Keys keep the order the server sent them in.
type Row struct {
	Keys   []string
	Values map[string]interface{}
}

// NewRow builds a row from alternating key/value pairs
func NewRow(pairs ...interface{}) Row {
	r := Row{Values: make(map[string]interface{}, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(fmt.Sprint(pairs[i]), pairs[i+1])
	}
	return r
}

// Set stores a value, appending the key on first use
func (r *Row) Set(key string, value interface{}) {
	if r.Values == nil {
		r.Values = make(map[string]interface{})
	}
	if _, ok := r.Values[key]; !ok {
		r.Keys = append(r.Keys, key)
	}
	r.Values[key] = value
}

// Get returns the raw value for key
func (r Row) Get(key string) interface{} {
	return r.Values[key]
}

// Text renders the value for key as display text; missing and null values are empty.
func (r Row) Text(key string) string {
	switch v := r.Values[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// UnmarshalJSON decodes an object while recording key order
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a JSON object")
	}

	*r = Row{Values: make(map[string]interface{})}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected row key %v", tok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("row field %q: %w", key, err)
		}
		r.Set(key, value)
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON encodes the row with its original key order
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.Values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
