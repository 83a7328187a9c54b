package managers

import (
	"fmt"

	"github.com/FluidspaceWeb/development-server/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// UnverifiedTokenDecoder extracts id_token claims without verifying the
// signature. This matches the provider trust model of the development
// server; production deployments should inject a verifying implementation
// of domain.IdentityTokenVerifier instead.
type UnverifiedTokenDecoder struct {
	parser *jwt.Parser
}

func NewUnverifiedTokenDecoder() *UnverifiedTokenDecoder {
	return &UnverifiedTokenDecoder{
		parser: jwt.NewParser(),
	}
}

func (d *UnverifiedTokenDecoder) DecodeClaims(idToken string) (map[string]any, error) {
	claims := jwt.MapClaims{}

	_, _, err := d.parser.ParseUnverified(idToken, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to decode id_token: %w", err)
	}

	return map[string]any(claims), nil
}

var _ domain.IdentityTokenVerifier = (*UnverifiedTokenDecoder)(nil)
