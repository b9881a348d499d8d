package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, badly signed, or carries no subject.
var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and validates HMAC-signed (HS256) bearer tokens. The signing
// key is immutable after construction and must be shared by all instances so that
// tokens issued by one instance verify on another. Tokens are stateless: there is
// no revocation store, validity ends at expiry.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService returns a TokenService signing with the given secret.
// accessTTL and refreshTTL bound the lifetimes of the two token variants;
// refresh tokens are not otherwise distinguished from access tokens.
func NewTokenService(secret []byte, issuer string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     secret,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue signs a token for subject expiring after ttl. extra claims are merged into
// the claim set; they must not use the registered names (sub, iat, exp, iss),
// which Issue always sets itself.
func (s *TokenService) Issue(subject string, extra map[string]any, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", ErrInvalidToken
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": s.issuer,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(ttl)),
	}
	for k, v := range extra {
		switch k {
		case "sub", "iss", "iat", "exp":
			continue
		}
		claims[k] = v
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// IssueAccess issues a short-lived access token for subject with optional extra claims.
func (s *TokenService) IssueAccess(subject string, extra map[string]any) (string, error) {
	return s.Issue(subject, extra, s.accessTTL)
}

// IssueRefresh issues a long-lived refresh token for subject. Same mechanism as an
// access token; only the TTL and the issuing endpoint distinguish the two.
func (s *TokenService) IssueRefresh(subject string) (string, error) {
	return s.Issue(subject, nil, s.refreshTTL)
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// Validate reports whether tokenString is a well-signed, unexpired token whose
// subject equals expectedSubject. The signature is verified first; malformed or
// unsigned input fails closed. The explicit subject check guards against a token
// validated against the wrong account being silently accepted.
func (s *TokenService) Validate(tokenString, expectedSubject string) bool {
	if tokenString == "" || expectedSubject == "" {
		return false
	}
	token, err := jwt.Parse(tokenString, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return false
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return false
	}
	return sub == expectedSubject
}

// ExtractSubject returns the subject of a token whose signature verifies, without
// enforcing expiry. Used to answer "who does this claim to be" before the full
// validity check; claims of a badly signed token are never trusted.
func (s *TokenService) ExtractSubject(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.Parse(tokenString, s.keyFunc)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

func (s *TokenService) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return s.secret, nil
}
