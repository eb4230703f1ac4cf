package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storeloom/console/internal/session"
	"github.com/storeloom/console/pkg/httputil"
	"github.com/storeloom/console/pkg/logger"
)

// Auth returns middleware that validates the Bearer JWT on every request and
// stores the authenticated merchant ID on the context. Health and metrics
// endpoints are exempt.
func Auth(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	exempt := []string{"/health", "/metrics"}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range exempt {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, "missing authorization header")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeUnauthorized(w, "invalid authorization header format")
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				log.Warn("invalid JWT token",
					slog.String("path", r.URL.Path),
					slog.String("error", errString(err)),
				)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeUnauthorized(w, "invalid token claims")
				return
			}
			merchantID, _ := claims["merchant_id"].(string)
			if merchantID == "" {
				merchantID, _ = claims["sub"].(string)
			}
			if merchantID == "" {
				writeUnauthorized(w, "token carries no merchant identity")
				return
			}

			ctx := session.WithMerchantID(r.Context(), merchantID)
			ctx = logger.WithMerchantID(ctx, merchantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveStore returns middleware that resolves the merchant's tenant store
// once per request and caches it on the context. Resolution failures pass
// through: each operation reports its own precondition failure with the
// proper reason.
func ResolveStore(resolver session.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if merchantID, ok := session.MerchantID(ctx); ok {
				if storeID, err := resolver.ResolveStore(ctx, merchantID); err == nil {
					ctx = session.WithStoreID(ctx, storeID)
					ctx = logger.WithStoreID(ctx, storeID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: message},
	})
}

func errString(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}
