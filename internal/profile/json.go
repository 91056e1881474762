package profile

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Document is the JSON form of a profile.
type Document struct {
	Model  string                 `json:"model,omitempty"`
	Tag    string                 `json:"tag,omitempty"`
	Layers []LayerExecutionResult `json:"layers"`
}

func ReadJSON(r io.Reader) (Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return doc, nil
}

func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
