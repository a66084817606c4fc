package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DefaultImageMIMEType is assumed when an image payload carries no media type.
const DefaultImageMIMEType = "image/png"

// Reading is the structured interpretation of one drawn card.
type Reading struct {
	Name              string `json:"name"`
	VisualDescription string `json:"visualDescription"`
	Meaning           string `json:"meaning"`
	SpiritualMessage  string `json:"spiritualMessage"`
}

// Validate reports the first required field that is empty.
func (r Reading) Validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("missing field %q", "name")
	case strings.TrimSpace(r.VisualDescription) == "":
		return fmt.Errorf("missing field %q", "visualDescription")
	case strings.TrimSpace(r.Meaning) == "":
		return fmt.Errorf("missing field %q", "meaning")
	case strings.TrimSpace(r.SpiritualMessage) == "":
		return fmt.Errorf("missing field %q", "spiritualMessage")
	}
	return nil
}

// ImageArtifact is an encoded image payload plus its media type.
type ImageArtifact struct {
	MIMEType string
	Data     []byte
}

// IsZero reports whether the artifact carries no payload.
func (a ImageArtifact) IsZero() bool { return len(a.Data) == 0 }

// ContentType returns the media type, defaulting to PNG.
func (a ImageArtifact) ContentType() string {
	if a.MIMEType == "" {
		return DefaultImageMIMEType
	}
	return a.MIMEType
}

// DataURI renders the artifact as data:<mime>;base64,<payload>.
func (a ImageArtifact) DataURI() string {
	return "data:" + a.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// ParseDataURI decodes a data URI produced by DataURI. A bare base64 payload
// without the data: prefix is accepted and assumed to be PNG.
func ParseDataURI(uri string) (ImageArtifact, error) {
	mime := DefaultImageMIMEType
	payload := uri
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		header, data, found := strings.Cut(rest, ",")
		if !found {
			return ImageArtifact{}, fmt.Errorf("data uri: missing payload separator")
		}
		if !strings.HasSuffix(header, ";base64") {
			return ImageArtifact{}, fmt.Errorf("data uri: only base64 payloads are supported")
		}
		if m := strings.TrimSuffix(header, ";base64"); m != "" {
			mime = m
		}
		payload = data
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ImageArtifact{}, fmt.Errorf("data uri: %w", err)
	}
	if len(raw) == 0 {
		return ImageArtifact{}, fmt.Errorf("data uri: empty payload")
	}
	return ImageArtifact{MIMEType: mime, Data: raw}, nil
}
