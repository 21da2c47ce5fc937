//go:build e2e

package auth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/rollcall/internal/auth/mail"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestOrganisationLifecycle walks an organisation from sign-up through
// invitations, promotion and removal.
func TestOrganisationLifecycle(t *testing.T) {
	env := setupEnvironment(t)
	client := env.startService(t)
	ctx := context.Background()

	founder, created := createFounder(t, client)
	require.True(t, created.User.IsSuperUser)
	require.True(t, created.User.IsAdmin)

	org, err := founder.CurrentOrganisation(ctx)
	require.NoError(t, err)
	require.Equal(t, orgName, org.Name)

	// Invite arrives over SMTP.
	inv, err := founder.SendInvite(ctx, authsdk.SendInviteRequest{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)
	token, subject := env.inviteToken(t, "bob@example.com")
	require.Equal(t, mail.InviteSubjectPrefix+" "+orgName, subject)

	// Resending rotates the token.
	env.clearMail(t)
	_, err = founder.ResendInvite(ctx, inv.ID)
	require.NoError(t, err)
	fresh, subject := env.inviteToken(t, "bob@example.com")
	require.Equal(t, mail.ResendSubjectPrefix+" "+orgName, subject)
	require.NotEqual(t, token, fresh)

	_, err = client.GetInvite(ctx, token)
	requireStatus(t, err, http.StatusNotFound)

	preview, err := client.GetInvite(ctx, fresh)
	require.NoError(t, err)
	require.Equal(t, inv.ID, preview.ID)

	bob, err := client.AcceptInvite(ctx, fresh, authsdk.AcceptInviteRequest{Password: "bob-password"})
	require.NoError(t, err)
	require.Equal(t, created.User.OrganisationID, bob.OrganisationID)

	// Plain members may not sign in until promoted.
	_, _, err = client.Login(ctx, "bob@example.com", "bob-password")
	requireStatus(t, err, http.StatusForbidden)

	promoted, err := founder.UpdateRole(ctx, bob.ID, true)
	require.NoError(t, err)
	require.True(t, promoted.IsAdmin)

	bobSession, _, err := client.Login(ctx, "bob@example.com", "bob-password")
	require.NoError(t, err)

	total, err := bobSession.TotalEmployees(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, total)

	// Removing employees is reserved to super users.
	err = bobSession.DeleteEmployee(ctx, created.User.ID)
	requireStatus(t, err, http.StatusForbidden)

	require.NoError(t, founder.DeleteEmployee(ctx, bob.ID))

	// The access token outlives the user, but nothing behind it does.
	_, err = bobSession.Me(ctx)
	requireStatus(t, err, http.StatusNotFound)
	_, err = client.Refresh(ctx, bobSession.RefreshToken())
	requireStatus(t, err, http.StatusUnauthorized)

	total, err = founder.TotalEmployees(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, total)

	logs, err := founder.ActivityLogs(ctx, 1, 20)
	require.NoError(t, err)
	require.NotEmpty(t, logs.Items)
	require.Equal(t, "user_removed", logs.Items[0].Kind)
}

// TestOrganisationMail renames the organisation to a non-ASCII name and
// checks both invite and free-form mail arrive with intact headers.
func TestOrganisationMail(t *testing.T) {
	env := setupEnvironment(t)
	client := env.startService(t)
	ctx := context.Background()

	founder, _ := createFounder(t, client)

	org, err := founder.UpdateOrganisation(ctx, authsdk.UpdateOrganisationRequest{Name: "Zoë & Café", Email: "team@zoe.example.com"})
	require.NoError(t, err)
	require.Equal(t, "Zoë & Café", org.Name)

	_, err = founder.SendInvite(ctx, authsdk.SendInviteRequest{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)
	_, subject := env.inviteToken(t, "bob@example.com")
	require.Equal(t, mail.InviteSubjectPrefix+" Zoë & Café", subject)

	err = founder.SendMessage(ctx, authsdk.SendMessageRequest{
		To:      "carol@example.com",
		Subject: "Rota für Montag",
		Message: "Doors open at 9.",
	})
	require.NoError(t, err)

	msg := env.latestMail(t, "carol@example.com")
	require.Equal(t, "Rota für Montag", msg.Subject)
	require.Contains(t, msg.Text, "Doors open at 9.")

	logs, err := founder.ActivityLogs(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, "message_sent", logs.Items[0].Kind)
}
