//go:build integration

package api_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/painterjd/deuce/pkg/api"
	"github.com/painterjd/deuce/pkg/api/auth"
	"github.com/painterjd/deuce/pkg/apiclient"
)

const testSecret = "integration-test-secret-0123456789abcdef"

func authedConfig() api.APIConfig {
	return api.APIConfig{
		Auth: api.AuthConfig{
			Enabled: true,
			Secret:  testSecret,
			Issuer:  "deuce",
		},
	}
}

// TestAuthProbesStayOpen verifies ping and health answer without a token.
func TestAuthProbesStayOpen(t *testing.T) {
	c := startServer(t, backends()[0], authedConfig(), testProject)

	require.NoError(t, c.Ping())

	lines, err := c.Health()
	require.NoError(t, err)
	assert.NotEmpty(t, lines)
}

// TestAuthTokenRoundTrip runs a write and a read with a minted token.
func TestAuthTokenRoundTrip(t *testing.T) {
	c := startServer(t, backends()[0], authedConfig(), testProject)

	token, err := auth.NewToken(testSecret, "deuce", testProject, time.Hour)
	require.NoError(t, err)
	c.SetToken(token)

	mustVault(t, c, testVault)
	id, _ := mustUpload(t, c, testVault, []byte("authenticated bytes"))

	got, err := c.GetBlock(testVault, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("authenticated bytes"), got)
}

// TestAuthMissingTokenRejected verifies data operations require a token.
func TestAuthMissingTokenRejected(t *testing.T) {
	c := startServer(t, backends()[0], authedConfig(), testProject)

	err := c.CreateVault(testVault)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsAuthError())
}

// TestAuthWrongProjectRejected uses a token scoped to a different project
// than the request header names.
func TestAuthWrongProjectRejected(t *testing.T) {
	c := startServer(t, backends()[0], authedConfig(), testProject)

	token, err := auth.NewToken(testSecret, "deuce", "someone-else", time.Hour)
	require.NoError(t, err)
	c.SetToken(token)

	err = c.CreateVault(testVault)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsAuthError())
}

// TestAuthGarbageTokenRejected sends a token signed with another secret.
func TestAuthGarbageTokenRejected(t *testing.T) {
	c := startServer(t, backends()[0], authedConfig(), testProject)

	token, err := auth.NewToken("a-completely-different-signing-secret!!", "deuce", testProject, time.Hour)
	require.NoError(t, err)
	c.SetToken(token)

	err = c.CreateVault(testVault)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsAuthError())
}
