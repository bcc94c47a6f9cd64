package scraper

import (
	"encoding/json"
	"strings"
)

// The catalog APIs are loose about JSON shapes: the same field can be
// a string or a number, a single object or an array, depending on the
// record. These helpers absorb that so the adapters can decode into
// fixed types.

// flexString accepts both string and numeric JSON values.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexText accepts a string or a list of strings; lists are joined
// with ", ".
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*f = flexText(strings.Join(list, ", "))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = flexText(s)
	return nil
}

// rawList decodes a field served as either a single object or an
// array of objects into a slice. Undecodable input yields nil.
func rawList[T any](raw json.RawMessage) []T {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one T
	if err := json.Unmarshal(raw, &one); err == nil {
		return []T{one}
	}
	return nil
}
