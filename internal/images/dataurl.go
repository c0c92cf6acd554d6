package images

import (
	"encoding/base64"
	"errors"
	"strings"
)

var errNotDataURL = errors.New("payload is not a base64 image data URL")

// DataURL is a parsed data:image/...;base64,... payload.
type DataURL struct {
	MediaType string
	Data      []byte
}

// ParseDataURL validates that raw is a base64 encoded image data URL.
func ParseDataURL(raw string) (DataURL, error) {
	trimmed := strings.TrimSpace(raw)
	rest, ok := strings.CutPrefix(trimmed, "data:")
	if !ok {
		return DataURL{}, errNotDataURL
	}
	header, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return DataURL{}, errNotDataURL
	}
	mediaType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return DataURL{}, errNotDataURL
	}
	if parameters := strings.Index(mediaType, ";"); parameters >= 0 {
		mediaType = mediaType[:parameters]
	}
	mediaType = strings.ToLower(mediaType)
	if !strings.HasPrefix(mediaType, "image/") || len(mediaType) == len("image/") {
		return DataURL{}, errNotDataURL
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return DataURL{}, errNotDataURL
	}
	if len(decoded) == 0 {
		return DataURL{}, errNotDataURL
	}
	return DataURL{MediaType: mediaType, Data: decoded}, nil
}
