package auth

import (
	"crypto/sha256"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
)

// StaffClaims carry the staff identity minted by the central auth service.
type StaffClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// Verifier checks staff bearer tokens. Tokens are signed with a shared HS256
// secret by the platform auth service; this service only verifies them.
type Verifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewVerifier constructs a verifier for the given shared secret and issuer.
// The HMAC key is the SHA-256 digest of the secret; HS256 requires a 32-byte
// key, which raw configured secrets rarely are.
func NewVerifier(secret, issuer string, ttl time.Duration) *Verifier {
	key := sha256.Sum256([]byte(secret))
	return &Verifier{secret: key[:], issuer: issuer, ttl: ttl}
}

// Mint signs a staff token. Used by dev tooling and tests; production tokens
// come from the auth service.
func (v *Verifier) Mint(staffID int64, claims StaffClaims) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: v.secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	std := gojwt.Claims{
		Subject:   fmt.Sprintf("%d", staffID),
		Issuer:    v.issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(now.Add(v.ttl)),
	}

	token, err := gojwt.Signed(signer).Claims(std).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize token: %w", err)
	}
	return token, nil
}

// Verify parses and validates the token, returning its claims.
func (v *Verifier) Verify(token string) (*gojwt.Claims, *StaffClaims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return nil, nil, fmt.Errorf("parse token: %w", err)
	}

	var std gojwt.Claims
	var staff StaffClaims
	if err := parsed.Claims(v.secret, &std, &staff); err != nil {
		return nil, nil, fmt.Errorf("verify token: %w", err)
	}

	if err := std.Validate(gojwt.Expected{Issuer: v.issuer, Time: time.Now()}); err != nil {
		return nil, nil, fmt.Errorf("validate claims: %w", err)
	}

	return &std, &staff, nil
}
