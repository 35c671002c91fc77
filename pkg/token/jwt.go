// Package token 提供了会话令牌的签发与校验。
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken 表示令牌签名不匹配、已过期或不包含会话 ID。
var ErrInvalidToken = errors.New("invalid session token")

// SessionManager 负责会话令牌的生成和验证。
// 令牌只是会话句柄，不代表任何账户或权限。
type SessionManager struct {
	secretKey []byte
	ttl       time.Duration
}

// SessionClaims 在 JWT 中携带会话 ID。
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewSessionManager 创建一个新的 SessionManager。secret 为空时使用进程内随机密钥，重启后旧令牌失效。
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	if secret == "" {
		secret = GenerateRandomString(32)
	}
	return &SessionManager{secretKey: []byte(secret), ttl: ttl}
}

// Generate 为给定会话签发令牌。
func (m *SessionManager) Generate(sessionID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if m.ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify 校验令牌并返回其中的会话 ID。
func (m *SessionManager) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}

// GenerateRandomString generates a random hex string of a given length.
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a less random string on error
		return fmt.Sprintf("fallback%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
