package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cwangg897/OneDayPiece/v1/models"
)

const (
	accessTokenTTL  = 30 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// TokenProvider issues and validates first-party HS256 token pairs
type TokenProvider struct {
	secret []byte
	clock  func() time.Time
}

// NewTokenProvider creates a token provider signing with the given secret
func NewTokenProvider(secret string) *TokenProvider {
	return &TokenProvider{
		secret: []byte(secret),
		clock:  time.Now,
	}
}

// GenerateTokenPair issues an access/refresh token pair for a member
func (p *TokenProvider) GenerateTokenPair(member *models.Member) (*models.TokenResponse, error) {
	now := p.clock()

	accessClaims := &models.MemberClaims{
		MemberID:  member.MemberID,
		Nickname:  member.Nickname,
		Role:      member.Role,
		TokenType: models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   member.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshClaims := &models.MemberClaims{
		MemberID:  member.MemberID,
		Role:      member.Role,
		TokenType: models.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   member.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(refreshTokenTTL)),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &models.TokenResponse{
		GrantType:            "Bearer",
		AccessToken:          accessToken,
		RefreshToken:         refreshToken,
		AccessTokenExpiresAt: now.Add(accessTokenTTL).UnixMilli(),
	}, nil
}

// ParseToken validates a signed token and returns its claims. Expired tokens
// fail validation unless allowExpired is set (reissue reads the subject out
// of an expired access token).
func (p *TokenProvider) ParseToken(tokenString string, allowExpired bool) (*models.MemberClaims, error) {
	claims := &models.MemberClaims{}
	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if allowExpired {
		parserOpts = append(parserOpts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ValidateRefreshToken checks a refresh token's signature, expiry and type
func (p *TokenProvider) ValidateRefreshToken(tokenString string) (*models.MemberClaims, error) {
	claims, err := p.ParseToken(tokenString, false)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != models.TokenTypeRefresh {
		return nil, fmt.Errorf("token is not a refresh token")
	}
	return claims, nil
}
