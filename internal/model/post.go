// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Post is the only record kept in the document store.
//
// The `json:"..."` tags are also the on-disk field names: the store file is
// nothing more than a JSON array of these structs, so renaming a tag is a
// breaking change for existing data files.
//
// ID and Author are set once when the post is created and never change.
// UpdatedAt starts equal to CreatedAt and only ever moves forward.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UnmarshalJSON accepts createdAt/updatedAt either as RFC 3339 strings or as
// epoch milliseconds, which is how data files from the first version of the
// blog store them. Marshalling always writes RFC 3339.
func (p *Post) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	// postFields has Post's fields but not its methods, so decoding into it
	// does not recurse back into UnmarshalJSON.
	type postFields Post
	var raw struct {
		postFields
		CreatedAt json.RawMessage `json:"createdAt"`
		UpdatedAt json.RawMessage `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	created, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return fmt.Errorf("createdAt: %w", err)
	}
	updated, err := parseTimestamp(raw.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updatedAt: %w", err)
	}

	*p = Post(raw.postFields)
	p.CreatedAt = created
	p.UpdatedAt = updated
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	if raw[0] == '"' {
		var t time.Time
		if err := json.Unmarshal(raw, &t); err != nil {
			return time.Time{}, err
		}
		return t, nil
	}

	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, fmt.Errorf("want RFC 3339 string or epoch milliseconds: %w", err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
