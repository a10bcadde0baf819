package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"vaultdrive/internal/domain"
)

// Actor представляет аутентифицированного пользователя, выполняющего запрос.
// Сервисы только авторизуют операции, аутентификацию выполняет внешний сервис,
// выдающий токен.
type Actor struct {
	ID   int64
	Role string
}

// IsAdmin проверяет, является ли пользователь администратором
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdministrator
}

var secret []byte

// Init устанавливает ключ проверки подписи токенов
func Init(jwtSecret string) {
	secret = []byte(jwtSecret)
}

// VerifyToken извлекает пользователя из заголовка Authorization.
// Токен - подписанный HS256 JWT с полями sub (id пользователя) и role.
func VerifyToken(r *http.Request) (Actor, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Actor{}, fmt.Errorf("no authorization header")
	}

	raw := strings.TrimPrefix(header, "Bearer ")
	return VerifyRawToken(raw)
}

// VerifyRawToken проверяет подпись токена и возвращает Actor
func VerifyRawToken(raw string) (Actor, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return Actor{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Actor{}, fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Actor{}, fmt.Errorf("missing subject claim: %w", err)
	}

	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid subject claim %q: %w", sub, err)
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = domain.RoleRegular
	}

	return Actor{ID: id, Role: role}, nil
}

// SignToken выпускает токен для пользователя. Используется в тестах
// и вспомогательных утилитах, основной выпуск токенов - забота сервиса
// аутентификации.
func SignToken(actor Actor) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(actor.ID, 10),
		"role": actor.Role,
	})
	return token.SignedString(secret)
}
