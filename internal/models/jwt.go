package models

// JWTClaims holds the ID-token claims the verifier extracts. Sub is the
// provider-scoped subject; users are matched on (provider, sub).
type JWTClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Exp   int64  `json:"exp"` // unix seconds
	Iat   int64  `json:"iat"` // unix seconds
	Iss   string `json:"iss"`
	Aud   string `json:"aud"`
}
