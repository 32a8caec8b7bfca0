package middle

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"sentinel/internals/security"
	"sentinel/pkg/apperror"
	"sentinel/pkg/utils"
)

type operatorCtxKeyType struct{}

var operatorCtxKey = operatorCtxKeyType{}

type AuthMiddleware struct {
	tokenSvc *security.TokenService
}

func NewAuthMiddleware(tokenSvc *security.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenSvc: tokenSvc,
	}
}

func (a *AuthMiddleware) Handle(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		reqID := middleware.GetReqID(ctx)

		token, err := a.extractBearerToken(r)
		if err != nil {
			utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, err.Error())
			return
		}

		claims, err := a.tokenSvc.ValidateAccessToken(token)
		if err != nil {
			utils.FromAppError(w, reqID, err)
			return
		}

		if claims.Operator == "" {
			utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "token has no operator")
			return
		}

		newCtx := context.WithValue(ctx, operatorCtxKey, claims.Operator)
		next.ServeHTTP(w, r.WithContext(newCtx))
	}

	return http.HandlerFunc(fn)
}

func (*AuthMiddleware) extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")

	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid Authorization header")
	}

	return parts[1], nil
}

// OperatorFromContext returns the authenticated operator name, when the
// request passed the auth middleware.
func OperatorFromContext(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(operatorCtxKey).(string)
	return op, ok
}
