package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// Document is the stored form of a record. Working on documents keeps
// fields the typed models do not know about.
type Document = map[string]any

var errNotArray = errors.New("value is not a JSON array")

func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// decodeDocs parses a stored array. Non-object elements are dropped and counted.
func decodeDocs(raw []byte) ([]Document, int, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, 0, nil
	}
	var items []any
	if err := decodeJSON(raw, &items); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, 0, errNotArray
		}
		return nil, 0, err
	}
	if items == nil {
		return nil, 0, errNotArray
	}
	docs := make([]Document, 0, len(items))
	dropped := 0
	for _, item := range items {
		doc, ok := item.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		docs = append(docs, doc)
	}
	return docs, dropped, nil
}

func encodeDocs(docs []Document) ([]byte, error) {
	if docs == nil {
		docs = []Document{}
	}
	return json.Marshal(docs)
}

// toDocument converts a typed record or a patch map into a Document
func toDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var doc Document
	if err := decodeJSON(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

func fromDocument[T any](doc Document) (T, error) {
	var out T
	raw, err := json.Marshal(doc)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// docString returns doc[field] when it is a string, "" otherwise
func docString(doc Document, field string) string {
	s, _ := doc[field].(string)
	return s
}

// decodeRef URL-decodes a reference, returning it unchanged when it is not valid escaping
func decodeRef(ref string) string {
	decoded, err := url.PathUnescape(ref)
	if err != nil {
		return ref
	}
	return decoded
}
