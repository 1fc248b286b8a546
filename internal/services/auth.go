package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/internal/config"
	"github.com/temcen/signalrank/pkg/models"
)

var ErrTokenRevoked = errors.New("token has been revoked")

// AuthService issues and validates service tokens. Revoked token IDs are kept
// in redis until the token would have expired anyway.
type AuthService struct {
	config      *config.AuthConfig
	logger      *logrus.Logger
	redisClient *redis.Client
	jwtSecret   []byte
}

func NewAuthService(cfg *config.AuthConfig, logger *logrus.Logger, redisClient *redis.Client) *AuthService {
	return &AuthService{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		jwtSecret:   []byte(cfg.JWTSecret),
	}
}

func (s *AuthService) GenerateToken(client, tier string, scope []string) (string, error) {
	now := time.Now()
	claims := &models.JWTClaims{
		Client: client,
		Tier:   tier,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   client,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Client == "" {
		return nil, fmt.Errorf("token has no client")
	}

	if s.redisClient != nil && claims.ID != "" {
		exists, err := s.redisClient.Exists(ctx, revokedKey(claims.ID)).Result()
		if err != nil {
			// Continue validation even if Redis is down
			s.logger.WithError(err).Warn("Failed to check token revocation in Redis")
		} else if exists > 0 {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// RevokeToken blocks a token until its expiry.
func (s *AuthService) RevokeToken(ctx context.Context, claims *models.JWTClaims) error {
	if s.redisClient == nil {
		return fmt.Errorf("token revocation requires redis")
	}

	ttl := s.config.TokenTTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}

	if err := s.redisClient.Set(ctx, revokedKey(claims.ID), claims.Client, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func revokedKey(id string) string {
	return fmt.Sprintf("auth:revoked:%s", id)
}
