package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sentinel/config"
	"sentinel/pkg/apperror"
)

type TokenService struct {
	secret string
	ttl    time.Duration
}

func NewTokenService(authCfg *config.AuthConfig) *TokenService {
	return &TokenService{
		secret: authCfg.Secret,
		ttl:    authCfg.TokenTTL,
	}
}

// GenerateAccessToken issues a token for an operator of the control API.
func (ts *TokenService) GenerateAccessToken(payload RequestClaims) (string, error) {
	now := time.Now()

	payload.ExpiresAt = jwt.NewNumericDate(now.Add(ts.ttl))
	payload.IssuedAt = jwt.NewNumericDate(now)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signedToken, err := token.SignedString([]byte(ts.secret))
	if err != nil {
		return "", err
	}

	return signedToken, nil
}

func (ts *TokenService) ValidateAccessToken(accessToken string) (*RequestClaims, error) {
	const op string = "service.token.validate_access_token"

	claims := &RequestClaims{}

	token, err := jwt.ParseWithClaims(
		accessToken,
		claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(ts.secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)

	if err != nil || !token.Valid {
		return nil, &apperror.Error{
			Kind:    apperror.Unauthorised,
			Op:      op,
			Message: "invalid token",
		}
	}

	return claims, nil
}
