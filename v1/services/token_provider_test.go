package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwangg897/OneDayPiece/v1/models"
)

func testMember() *models.Member {
	return &models.Member{
		MemberID: "mem_token_test",
		Email:    "token@test.dev",
		Nickname: "tokenuser",
		Role:     models.RoleMember,
		Status:   true,
	}
}

func TestGenerateTokenPair_RoundTrip(t *testing.T) {
	provider := NewTokenProvider(testJWTSecret)

	pair, err := provider.GenerateTokenPair(testMember())
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.GrantType)

	claims, err := provider.ParseToken(pair.AccessToken, false)
	require.NoError(t, err)
	assert.Equal(t, "mem_token_test", claims.MemberID)
	assert.Equal(t, "token@test.dev", claims.Subject)
	assert.Equal(t, models.TokenTypeAccess, claims.TokenType)
	assert.Equal(t, models.RoleMember, claims.Role)
}

func TestValidateRefreshToken_RejectsAccessToken(t *testing.T) {
	provider := NewTokenProvider(testJWTSecret)

	pair, err := provider.GenerateTokenPair(testMember())
	require.NoError(t, err)

	claims, err := provider.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeRefresh, claims.TokenType)

	_, err = provider.ValidateRefreshToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestParseToken_WrongSecret(t *testing.T) {
	provider := NewTokenProvider(testJWTSecret)
	imposter := NewTokenProvider("a-different-secret")

	pair, err := provider.GenerateTokenPair(testMember())
	require.NoError(t, err)

	_, err = imposter.ParseToken(pair.AccessToken, false)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	provider := NewTokenProvider(testJWTSecret)
	provider.clock = func() time.Time { return time.Now().Add(-2 * accessTokenTTL) }

	pair, err := provider.GenerateTokenPair(testMember())
	require.NoError(t, err)

	_, err = provider.ParseToken(pair.AccessToken, false)
	assert.Error(t, err, "expired access token fails normal parsing")

	// Reissue reads the subject out of an expired access token.
	claims, err := provider.ParseToken(pair.AccessToken, true)
	require.NoError(t, err)
	assert.Equal(t, "token@test.dev", claims.Subject)
}
