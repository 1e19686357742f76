package models

// AuthClaims are the JWT claims accepted on authenticated endpoints.
// Tokens are issued out of band by the operator and signed with the
// shared secret from configuration.
type AuthClaims struct {
	Issuer    string `json:"iss,omitempty"`
	Subject   string `json:"sub,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
}
