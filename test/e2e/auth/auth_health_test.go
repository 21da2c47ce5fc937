//go:build e2e

package auth_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthAndDiscovery(t *testing.T) {
	env := setupEnvironment(t)
	client := env.startService(t)
	ctx := context.Background()

	live, err := client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	for _, check := range []string{"database", "sessions", "signer"} {
		require.Equal(t, "ok", ready.Checks[check], check)
	}

	jwks, err := client.GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "EdDSA", jwks.Keys[0].Alg)

	// A second instance over the same key file publishes the same key.
	again, err := env.startService(t).GetJWKS(ctx)
	require.NoError(t, err)
	require.Equal(t, jwks.Keys[0].Kid, again.Keys[0].Kid)

	resp, err := http.Get(client.BaseURL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), "rollcall_http_requests_total"))
}
