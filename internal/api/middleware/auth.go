package middleware

import (
	"net/http"
	"strings"

	"tradecore/pkg/crypto"
)

// Auth - bearer-аутентификация операторского API.
//
// Токен из заголовка Authorization сверяется с bcrypt-хешем из
// конфигурации (OPS_TOKEN_HASH). Сам токен нигде не хранится и не
// логируется. Сравнение через bcrypt устойчиво к перебору по времени.
//
// Пустой хеш отклоняет все запросы: сервер без настроенного токена
// не должен молча открывать API.
func Auth(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" || tokenHash == "" || !crypto.CheckTokenMatch(token, tokenHash) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="ops"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken извлекает токен из заголовка Authorization
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
