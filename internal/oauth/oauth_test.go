package oauth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGenerateState(t *testing.T) {
	state1, err := GenerateState()
	assert.NoError(t, err)
	assert.NotEmpty(t, state1)

	state2, err := GenerateState()
	assert.NoError(t, err)
	assert.NotEmpty(t, state2)

	// Each call should produce a different state
	assert.NotEqual(t, state1, state2)

	// State should be base64 URL encoded (44 chars for 32 bytes)
	assert.Len(t, state1, 44)
}

func TestProfileID(t *testing.T) {
	assert.Equal(t, "abc", profileID(map[string]any{"sub": "abc", "id": "ignored"}, "sub", "id"))
	assert.Equal(t, "12345", profileID(map[string]any{"id": 12345.0}, "id"))
	assert.Equal(t, "9", profileID(map[string]any{"id": json.Number("9")}, "id"))
	assert.Equal(t, "", profileID(map[string]any{}, "sub", "id"))
}

func TestCredentialsFromToken(t *testing.T) {
	expiry := time.Unix(1700000000, 0)
	token := (&oauth2.Token{
		AccessToken: "access",
		TokenType:   "Bearer",
		Expiry:      expiry,
	}).WithExtra(map[string]any{"id_token": "id", "scope": "email"})

	creds := credentialsFromToken("google", "sub-1", token)

	assert.Equal(t, "oauth", creds.Type)
	assert.Equal(t, "google", creds.Provider)
	assert.Equal(t, "sub-1", creds.ProviderAccountID)
	assert.Equal(t, "id", creds.IDToken)
	assert.Equal(t, "email", creds.Scope)
	require.NotNil(t, creds.ExpiresAt)
	assert.Equal(t, int64(1700000000), *creds.ExpiresAt)
}
