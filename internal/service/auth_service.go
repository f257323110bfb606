package service

import (
	"crypto/subtle"
	"fmt"
	"time"

	"samaj-census/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// TokenResponse 登录响应
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthService 管理端认证服务接口
type AuthService interface {
	// IssueToken validates admin credentials and returns a signed,
	// time-limited bearer token.
	IssueToken(username, password string) (*TokenResponse, error)
	// VerifyToken returns the token subject, or an error for any
	// missing/invalid/expired token (no further detail is exposed).
	VerifyToken(token string) (string, error)
}

type authService struct {
	cfg    config.AuthConfig
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(cfg config.AuthConfig, logger *zap.Logger) AuthService {
	return &authService{cfg: cfg, logger: logger}
}

func (s *authService) IssueToken(username, password string) (*TokenResponse, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) == 1
	if !userOK || !passOK {
		s.logger.Warn("Admin login failed: invalid credentials",
			zap.String("username", username),
		)
		return nil, fmt.Errorf("invalid credentials")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenExpiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("Admin token issued", zap.String("username", username))
	return &TokenResponse{AccessToken: signed, TokenType: "bearer"}, nil
}

func (s *authService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Subject, nil
}
