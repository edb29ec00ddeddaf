// Package middleware содержит HTTP middleware для сервиса печати книг.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
)

type contextKey string

const (
	userIDKey  contextKey = "userID"
	isStaffKey contextKey = "isStaff"
)

const (
	roleStaff = "staff"
	roleUser  = "user"
)

// AuthMiddleware выполняет проверку аутентификации пользователя по подписанному bearer-токену.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware проверяет заголовок Authorization и добавляет идентификатор
// пользователя и признак сотрудника в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		userID, isStaff, ok := a.parseToken(token)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, isStaffKey, isStaff)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IssueToken выдаёт подписанный bearer-токен для указанного пользователя.
func (a *AuthMiddleware) IssueToken(userID int64, isStaff bool) string {
	role := roleUser
	if isStaff {
		role = roleStaff
	}
	payload := strconv.FormatInt(userID, 10) + ":" + role
	return payload + "." + a.sign(payload)
}

func (a *AuthMiddleware) sign(payload string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parseToken(token string) (int64, bool, bool) {
	payload, signature, found := strings.Cut(token, ".")
	if !found {
		return 0, false, false
	}

	if !hmac.Equal([]byte(signature), []byte(a.sign(payload))) {
		return 0, false, false
	}

	idStr, role, found := strings.Cut(payload, ":")
	if !found {
		return 0, false, false
	}
	if role != roleStaff && role != roleUser {
		return 0, false, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, false, false
	}

	return id, role == roleStaff, true
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// IsStaffFromContext сообщает, помечен ли пользователь запроса как сотрудник.
func IsStaffFromContext(ctx context.Context) bool {
	isStaff, ok := ctx.Value(isStaffKey).(bool)
	return ok && isStaff
}
