//go:build e2e

package auth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefreshRotationAcrossReplicas(t *testing.T) {
	env := setupEnvironment(t)
	first := env.startService(t)
	second := env.startService(t)
	ctx := context.Background()

	sess, _ := createFounder(t, first)
	original := sess.RefreshToken()

	// The replica shares the signing key and Redis, so it honours both tokens.
	me, err := second.NewSessionFromTokens(sess.AccessToken(), "").Me(ctx)
	require.NoError(t, err)
	require.Equal(t, founderEmail, me.Email)

	pair, err := second.Refresh(ctx, original)
	require.NoError(t, err)
	require.NotEqual(t, original, pair.RefreshToken)

	// The rotated token is spent everywhere.
	_, err = first.Refresh(ctx, original)
	requireStatus(t, err, http.StatusUnauthorized)

	_, err = first.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestLogoutEverywhere(t *testing.T) {
	env := setupEnvironment(t)
	client := env.startService(t)
	ctx := context.Background()

	sess, _ := createFounder(t, client)
	other, _, err := client.Login(ctx, founderEmail, founderPassword)
	require.NoError(t, err)

	resp, err := other.LogoutAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, resp.Revoked)

	_, err = client.Refresh(ctx, sess.RefreshToken())
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	env := setupEnvironment(t)
	client := env.startService(t)
	ctx := context.Background()

	sess, _ := createFounder(t, client)
	refresh := sess.RefreshToken()

	_, err := sess.ChangePassword(ctx, founderPassword, "a-new-password")
	require.NoError(t, err)

	_, err = client.Refresh(ctx, refresh)
	requireStatus(t, err, http.StatusUnauthorized)

	_, _, err = client.Login(ctx, founderEmail, founderPassword)
	requireStatus(t, err, http.StatusUnauthorized)

	_, _, err = client.Login(ctx, founderEmail, "a-new-password")
	require.NoError(t, err)
}
