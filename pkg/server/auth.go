package server

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt"
)

const tokenCookieName = "token"

// TokenAuth guards the admin endpoints with an HS256 token, read from the
// token cookie or an Authorization bearer header. An empty key disables the
// guard, for local use.
type TokenAuth struct {
	serverKey []byte
}

func NewTokenAuth() *TokenAuth {
	return &TokenAuth{serverKey: []byte(os.Getenv("JWT_KEY"))}
}

func (a *TokenAuth) tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(tokenCookieName); err == nil {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

func (a *TokenAuth) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(a.serverKey) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		tokenString := a.tokenFromRequest(r)
		if tokenString == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return a.serverKey, nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}
}
