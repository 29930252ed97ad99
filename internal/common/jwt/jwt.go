// Package jwt 提供管理员会话令牌
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dumeirei/dormitory-backend/internal/common/config"
)

// 令牌类型
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims 管理员令牌声明
type Claims struct {
	AdminID   string `json:"admin_id"`
	AdminName string `json:"admin_name,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Manager JWT 管理器
type Manager struct {
	secret        []byte
	issuer        string
	accessExpire  time.Duration
	refreshExpire time.Duration
	now           func() time.Time
}

// TokenPair 令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// 预定义错误
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenNotActive = errors.New("token not active yet")
	ErrTokenType      = errors.New("unexpected token type")
)

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.JWTConfig) *Manager {
	return &Manager{
		secret:        []byte(cfg.Secret),
		issuer:        cfg.Issuer,
		accessExpire:  cfg.AccessTokenDuration(),
		refreshExpire: cfg.RefreshTokenDuration(),
		now:           time.Now,
	}
}

// GenerateTokenPair 生成令牌对
func (m *Manager) GenerateTokenPair(adminID, adminName string) (*TokenPair, error) {
	now := m.now()
	accessExpireAt := now.Add(m.accessExpire)

	accessToken, err := m.generateToken(adminID, adminName, TokenTypeAccess, now, accessExpireAt)
	if err != nil {
		return nil, err
	}

	refreshToken, err := m.generateToken(adminID, adminName, TokenTypeRefresh, now, now.Add(m.refreshExpire))
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExpireAt.Unix(),
	}, nil
}

func (m *Manager) generateToken(adminID, adminName, tokenType string, now, expireAt time.Time) (string, error) {
	claims := &Claims{
		AdminID:   adminID,
		AdminName: adminName,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expireAt),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析令牌
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(m.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrTokenMalformed
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotActive
		}
		return nil, ErrTokenInvalid
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrTokenInvalid
}

// ParseAccessToken 解析访问令牌，拒绝刷新令牌
func (m *Manager) ParseAccessToken(tokenString string) (*Claims, error) {
	claims, err := m.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrTokenType
	}
	return claims, nil
}

// RefreshToken 使用刷新令牌换取新的令牌对
func (m *Manager) RefreshToken(refreshTokenString string) (*TokenPair, error) {
	claims, err := m.ParseToken(refreshTokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrTokenType
	}

	return m.GenerateTokenPair(claims.AdminID, claims.AdminName)
}
