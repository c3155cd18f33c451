package catalog

import (
	"encoding/json"
	"errors"
)

const (
	descriptionFallback = "No description available"
	bioFallback         = "No bio available"
)

var (
	// ErrMissingAuthor means the work document carries no resolvable
	// author entry, so enrichment cannot complete.
	ErrMissingAuthor = errors.New("book has no author key")

	// ErrIncompleteSource means one of the raw documents needed for
	// normalization is absent or undecodable.
	ErrIncompleteSource = errors.New("book or author info not present")
)

// Metadata is the canonical shape extracted from the catalog's
// heterogeneous work and author documents.
type Metadata struct {
	Title       string
	Description string
	Author      Author
}

type Author struct {
	Key  string
	Name string
	Bio  string
}

type rawWork struct {
	Title       string          `json:"title"`
	Description json.RawMessage `json:"description"`
	Authors     []rawAuthorRef  `json:"authors"`
}

// Work documents reference authors either as {"author": {"key": ...}}
// or as a bare {"key": ...} depending on the record's age.
type rawAuthorRef struct {
	Author struct {
		Key string `json:"key"`
	} `json:"author"`
	Key string `json:"key"`
}

type rawAuthor struct {
	Key  string          `json:"key"`
	Name string          `json:"name"`
	Bio  json.RawMessage `json:"bio"`
}

// AuthorKey extracts the lookup key of the work's first author entry.
func AuthorKey(workRaw json.RawMessage) (string, error) {
	if len(workRaw) == 0 {
		return "", ErrIncompleteSource
	}

	var work rawWork

	if err := json.Unmarshal(workRaw, &work); err != nil {
		return "", ErrIncompleteSource
	}

	if len(work.Authors) == 0 {
		return "", ErrMissingAuthor
	}

	first := work.Authors[0]

	if first.Author.Key != "" {
		return first.Author.Key, nil
	}

	if first.Key != "" {
		return first.Key, nil
	}

	return "", ErrMissingAuthor
}

// Normalize produces canonical metadata from a raw work document and a
// raw author document. Description and bio fields may be plain strings
// or {"value": ...} objects; both degrade to fixed fallbacks.
func Normalize(workRaw, authorRaw json.RawMessage) (Metadata, error) {
	if len(workRaw) == 0 || len(authorRaw) == 0 {
		return Metadata{}, ErrIncompleteSource
	}

	var work rawWork

	if err := json.Unmarshal(workRaw, &work); err != nil {
		return Metadata{}, ErrIncompleteSource
	}

	var author rawAuthor

	if err := json.Unmarshal(authorRaw, &author); err != nil {
		return Metadata{}, ErrIncompleteSource
	}

	authorKey, err := AuthorKey(workRaw)
	if err != nil {
		return Metadata{}, err
	}

	if author.Key != "" {
		authorKey = author.Key
	}

	return Metadata{
		Title:       work.Title,
		Description: textValue(work.Description, descriptionFallback),
		Author: Author{
			Key:  authorKey,
			Name: author.Name,
			Bio:  textValue(author.Bio, bioFallback),
		},
	}, nil
}

// textValue resolves a field that is either a JSON string or a nested
// {"value": ...} object, falling back when neither yields text.
func textValue(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}

	var s string

	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}

	var nested struct {
		Value string `json:"value"`
	}

	if err := json.Unmarshal(raw, &nested); err == nil && nested.Value != "" {
		return nested.Value
	}

	return fallback
}
