package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestUpdateOrganisation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	ctx := context.Background()
	sess, _ := s.founder(t)

	org, err := sess.UpdateOrganisation(ctx, authsdk.UpdateOrganisationRequest{Name: "Acme Pty", Email: " Billing@Acme.com "})
	require.NoError(t, err)
	require.Equal(t, "Acme Pty", org.Name)
	require.Equal(t, "billing@acme.com", org.Email)

	current, err := sess.CurrentOrganisation(ctx)
	require.NoError(t, err)
	require.Equal(t, org.ID, current.ID)
	require.Equal(t, "Acme Pty", current.Name)

	t.Run("email taken by another organisation", func(t *testing.T) {
		_, _, err := s.client.CreateAccount(ctx, accountRequest("zed@y.com", "org@y.com"))
		require.NoError(t, err)

		_, err = sess.UpdateOrganisation(ctx, authsdk.UpdateOrganisationRequest{Name: "Acme", Email: "org@y.com"})
		requireAPIError(t, err, http.StatusConflict, authsdk.ErrorCodeConflict)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := sess.UpdateOrganisation(ctx, authsdk.UpdateOrganisationRequest{Name: "Acme\nInc", Email: "nope"})
		apiErr := requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeValidation)
		require.Contains(t, apiErr.Details, "name")
		require.Contains(t, apiErr.Details, "email")
	})

	t.Run("admins who are not super users are refused", func(t *testing.T) {
		bob := s.member(t, sess, "bob", "bob@x.com")
		_, err := sess.UpdateRole(ctx, bob.ID, true)
		require.NoError(t, err)
		bobSess, _, err := s.client.Login(ctx, "bob@x.com", "password-bob")
		require.NoError(t, err)

		_, err = bobSess.UpdateOrganisation(ctx, authsdk.UpdateOrganisationRequest{Name: "Bob Co", Email: "bob@co.com"})
		requireAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeForbidden)
	})
}

func TestSendMessage(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	ctx := context.Background()
	sess, _ := s.founder(t)

	err := sess.SendMessage(ctx, authsdk.SendMessageRequest{To: " Bob@X.com", Subject: "Roster", Message: "Shift moved to 9am."})
	require.NoError(t, err)

	sent := s.mailer.last(t)
	require.Equal(t, "bob@x.com", sent.To)
	require.Equal(t, "Roster", sent.Subject)
	require.Equal(t, "Shift moved to 9am.", sent.Body)

	err = sess.SendMessage(ctx, authsdk.SendMessageRequest{To: "bob@x.com", Subject: "a\r\nBcc: eve@x.com"})
	apiErr := requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeValidation)
	require.Contains(t, apiErr.Details, "subject")
	require.Contains(t, apiErr.Details, "message")

	bob := s.member(t, sess, "bob", "bob@x.com")
	bobSess := s.memberSession(t, bob)
	err = bobSess.SendMessage(ctx, authsdk.SendMessageRequest{To: "eve@x.com", Subject: "hi", Message: "x"})
	requireAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeForbidden)
}
