package media

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// Metadata is the processor-derived metadata blob, tagged by media kind.
// Exactly one branch may be populated and it must match the asset's kind, so
// callers cannot write image fields onto a document and vice versa. The branch
// contents are stored opaquely; interpreting them is a viewer concern.
type Metadata struct {
	Kind     Kind              `json:"kind"`
	Image    *ImageMetadata    `json:"image,omitempty"`
	AV       *AVMetadata       `json:"av,omitempty"`
	Document *DocumentMetadata `json:"document,omitempty"`
}

type ImageMetadata struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AVMetadata covers both audio and video assets.
type AVMetadata struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Bitrate         *int    `json:"bitrate,omitempty"`
	Width           *int    `json:"width,omitempty"`
	Height          *int    `json:"height,omitempty"`
}

type DocumentMetadata struct {
	PageCount     *int              `json:"page_count,omitempty"`
	ExtractedText *string           `json:"extracted_text,omitempty"`
	Tables        []json.RawMessage `json:"tables,omitempty"`
}

// Validate checks that the populated branch matches kind and nothing else is set.
func (m *Metadata) Validate(kind Kind) error {
	if m.Kind != "" && m.Kind != kind {
		return fmt.Errorf("%w: metadata tagged %q for %q asset", ErrInvalidOutcome, m.Kind, kind)
	}
	branches := 0
	if m.Image != nil {
		branches++
		if kind != KindImage {
			return fmt.Errorf("%w: image metadata on %q asset", ErrInvalidOutcome, kind)
		}
	}
	if m.AV != nil {
		branches++
		if kind != KindAudio && kind != KindVideo {
			return fmt.Errorf("%w: av metadata on %q asset", ErrInvalidOutcome, kind)
		}
	}
	if m.Document != nil {
		branches++
		if kind != KindDocument {
			return fmt.Errorf("%w: document metadata on %q asset", ErrInvalidOutcome, kind)
		}
	}
	if branches > 1 {
		return fmt.Errorf("%w: multiple metadata branches populated", ErrInvalidOutcome)
	}
	return nil
}

// Duration returns the AV duration when present.
func (m *Metadata) Duration() *float64 {
	if m.AV == nil {
		return nil
	}
	d := m.AV.DurationSeconds
	return &d
}

// MarshalColumn serializes the union for the JSON column, tagging it with kind.
func (m *Metadata) MarshalColumn(kind Kind) (datatypes.JSON, error) {
	m.Kind = kind
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodeMetadata parses a stored metadata column back into the union.
func DecodeMetadata(raw datatypes.JSON) (*Metadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &m, nil
}
