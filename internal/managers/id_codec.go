package managers

import (
	"encoding/base32"
	"errors"
	"strings"

	"github.com/FluidspaceWeb/development-server/internal/domain"
)

var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// maskedIDCodec reversibly obfuscates internal record ids for external
// display. It is keyed masking, not encryption: the ids it hides are not
// secrets, they just must not be guessable-sequential in module payloads.
type maskedIDCodec struct {
	key []byte
}

func NewIDCodec(key string) (domain.IDCodec, error) {
	if key == "" {
		return nil, errors.New("id codec key must not be empty")
	}

	return &maskedIDCodec{key: []byte(key)}, nil
}

func (c *maskedIDCodec) Encode(id string) string {
	return strings.ToLower(idEncoding.EncodeToString(c.mask([]byte(id))))
}

func (c *maskedIDCodec) Decode(encoded string) (string, error) {
	raw, err := idEncoding.DecodeString(strings.ToUpper(encoded))
	if err != nil {
		return "", errors.New("malformed encoded id")
	}

	return string(c.mask(raw)), nil
}

func (c *maskedIDCodec) mask(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ c.key[i%len(c.key)]
	}
	return out
}
