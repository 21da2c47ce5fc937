package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func sendInput(actor domain.Identity, name, email string) SendInviteInput {
	return SendInviteInput{
		InvitedBy:      actor.Sub,
		OrganisationID: actor.OrganisationID,
		Name:           name,
		Email:          email,
	}
}

func TestInviteSendAndAccept(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEnv(t)

	_, actor := e.founder(t, "a@x.com", "org@x.com")

	inv, err := e.invites.Send(ctx, sendInput(actor, "Bob", " Bob@X.com "))
	require.NoError(t, err)
	require.Equal(t, "bob@x.com", inv.Email)
	require.WithinDuration(t, time.Now().Add(DefaultInviteExpiry), inv.ExpiresAt, time.Minute)

	msg := e.mailer.last(t)
	require.Equal(t, "bob@x.com", msg.To)
	require.Equal(t, "You're invited to join Acme", msg.Subject)

	raw := e.mailer.lastToken(t)
	require.NotEmpty(t, raw)
	require.NotEqual(t, inv.TokenHash, raw)
	require.Equal(t, cryptox.Fingerprint(raw), inv.TokenHash)

	pending, err := e.invites.Pending(ctx, actor.OrganisationID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	found, err := e.invites.FindByToken(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, inv.ID, found.ID)

	user, err := e.invites.Accept(ctx, AcceptInviteInput{Token: raw, Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "Bob", user.Name)
	require.Equal(t, "bob@x.com", user.Email)
	require.Equal(t, actor.OrganisationID, user.OrganisationID)
	require.False(t, user.IsAdmin)
	require.False(t, user.IsSuperUser)

	accepted, err := e.invites.Accepted(ctx, actor.OrganisationID)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	require.Equal(t, user.ID, accepted[0].UsedBy)

	pending, err = e.invites.Pending(ctx, actor.OrganisationID)
	require.NoError(t, err)
	require.Empty(t, pending)

	_, err = e.invites.FindByToken(ctx, raw)
	requireKind(t, err, ErrBadRequest)

	_, err = e.invites.Accept(ctx, AcceptInviteInput{Token: raw, Password: "pw"})
	requireKind(t, err, ErrBadRequest)

	logs, err := e.activity.List(ctx, actor.OrganisationID, store.Page{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	require.Equal(t, domain.ActivityJoined, logs[0].Kind)
	require.Equal(t, domain.ActivityInviteSent, logs[1].Kind)
}

func TestInviteSendDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEnv(t)

	_, actor := e.founder(t, "a@x.com", "org@x.com")

	_, err := e.invites.Send(ctx, sendInput(actor, "Bob", "bob@x.com"))
	require.NoError(t, err)

	_, err = e.invites.Send(ctx, sendInput(actor, "Bob", "BOB@x.com"))
	se := requireKind(t, err, ErrBadRequest)
	require.Equal(t, "active invite already exists", se.Message)
	require.Equal(t, 1, e.mailer.count())

	t.Run("another organisation may invite the same address", func(t *testing.T) {
		_, other := e.founder(t, "z@x.com", "zorg@x.com")
		_, err := e.invites.Send(ctx, sendInput(other, "Bob", "bob@x.com"))
		require.NoError(t, err)
	})
}

func TestInviteSendConcurrentDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEnv(t)

	_, actor := e.founder(t, "a@x.com", "org@x.com")

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.invites.Send(ctx, sendInput(actor, "Bob", "bob@x.com"))
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, ErrBadRequest)
	}
	require.Equal(t, 1, ok)
}

func TestInviteEmailFailureKeepsInvite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEnv(t)

	_, actor := e.founder(t, "a@x.com", "org@x.com")

	e.mailer.fail(errors.New("smtp down"))
	_, err := e.invites.Send(ctx, sendInput(actor, "Bob", "bob@x.com"))
	se := requireKind(t, err, ErrInternal)
	require.Equal(t, "failed to send invite email", se.Message)

	pending, err := e.invites.Pending(ctx, actor.OrganisationID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	e.mailer.fail(nil)
	_, err = e.invites.Resend(ctx, actor.Sub, actor.OrganisationID, pending[0].ID)
	require.NoError(t, err)

	_, err = e.invites.Accept(ctx, AcceptInviteInput{Token: e.mailer.lastToken(t), Password: "pw"})
	require.NoError(t, err)
}

func TestInviteExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEnv(t)
	e.invites.Expiry = 50 * time.Millisecond

	_, actor := e.founder(t, "a@x.com", "org@x.com")

	_, err := e.invites.Send(ctx, sendInput(actor, "Bob", "bob@x.com"))
	require.NoError(t, err)
	raw := e.mailer.lastToken(t)

	time.Sleep(100 * time.Millisecond)

	_, err = e.invites.FindByToken(ctx, raw)
	requireKind(t, err, ErrConflict)

	_, err = e.invites.Accept(ctx, AcceptInviteInput{Token: raw, Password: "pw"})
	requireKind(t, err, ErrConflict)

	pending, err := e.invites.Pending(ctx, actor.OrganisationID)
	require.NoError(t, err)
	require.Empty(t, pending)

	// The expired invite no longer blocks a fresh one.
	e.invites.Expiry = 0
	_, err = e.invites.Send(ctx, sendInput(actor, "Bob", "bob@x.com"))
	require.NoError(t, err)
}

func TestInviteAcceptConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEnv(t)

	_, actor := e.founder(t, "a@x.com", "org@x.com")
	_, err := e.invites.Send(ctx, sendInput(actor, "Bob", "bob@x.com"))
	require.NoError(t, err)
	raw := e.mailer.lastToken(t)

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.invites.Accept(ctx, AcceptInviteInput{Token: raw, Password: "pw"})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, ErrBadRequest)
	}
	require.Equal(t, 1, ok)

	total, err := e.users.TotalEmployees(ctx, actor.OrganisationID)
	require.NoError(t, err)
	require.Equal(t, 2, total)
}

func TestInviteAcceptValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEnv(t)

	_, actor := e.founder(t, "a@x.com", "org@x.com")

	t.Run("unknown token", func(t *testing.T) {
		_, err := e.invites.Accept(ctx, AcceptInviteInput{Token: "nope", Password: "pw"})
		requireKind(t, err, ErrNotFound)
		_, err = e.invites.FindByToken(ctx, "")
		requireKind(t, err, ErrNotFound)
	})

	t.Run("email mismatch", func(t *testing.T) {
		_, err := e.invites.Send(ctx, sendInput(actor, "Carol", "carol@x.com"))
		require.NoError(t, err)
		_, err = e.invites.Accept(ctx, AcceptInviteInput{Token: e.mailer.lastToken(t), Email: "mallory@x.com", Password: "pw"})
		requireKind(t, err, ErrBadRequest)
	})

	t.Run("existing account leaves invite redeemable", func(t *testing.T) {
		_, err := e.invites.Send(ctx, sendInput(actor, "A", "a@x.com"))
		require.NoError(t, err)
		raw := e.mailer.lastToken(t)

		_, err = e.invites.Accept(ctx, AcceptInviteInput{Token: raw, Password: "pw"})
		requireKind(t, err, ErrConflict)

		inv, err := e.invites.FindByToken(ctx, raw)
		require.NoError(t, err)
		require.False(t, inv.Used)
	})
}

func TestInviteResend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newTestEnv(t)

	_, actor := e.founder(t, "a@x.com", "org@x.com")
	inv, err := e.invites.Send(ctx, sendInput(actor, "Bob", "bob@x.com"))
	require.NoError(t, err)
	first := e.mailer.lastToken(t)

	resent, err := e.invites.Resend(ctx, actor.Sub, actor.OrganisationID, inv.ID)
	require.NoError(t, err)
	require.Equal(t, inv.ID, resent.ID)
	require.NotEqual(t, inv.TokenHash, resent.TokenHash)
	require.True(t, strings.HasPrefix(e.mailer.last(t).Subject, "Your invitation has been resent to join"))
	second := e.mailer.lastToken(t)
	require.NotEqual(t, first, second)

	_, err = e.invites.FindByToken(ctx, first)
	requireKind(t, err, ErrNotFound)

	_, err = e.invites.Accept(ctx, AcceptInviteInput{Token: second, Password: "pw"})
	require.NoError(t, err)

	_, err = e.invites.Resend(ctx, actor.Sub, actor.OrganisationID, inv.ID)
	requireKind(t, err, ErrBadRequest)

	_, err = e.invites.Resend(ctx, actor.Sub, actor.OrganisationID, "missing")
	requireKind(t, err, ErrNotFound)

	t.Run("scoped to the organisation", func(t *testing.T) {
		_, other := e.founder(t, "z@x.com", "zorg@x.com")
		inv, err := e.invites.Send(ctx, sendInput(actor, "Dan", "dan@x.com"))
		require.NoError(t, err)

		_, err = e.invites.Resend(ctx, other.Sub, other.OrganisationID, inv.ID)
		requireKind(t, err, ErrNotFound)
	})

	logs, err := e.activity.List(ctx, actor.OrganisationID, store.Page{Page: 1, Limit: 100})
	require.NoError(t, err)
	var resends int
	for _, l := range logs {
		if l.Kind == domain.ActivityInviteResent {
			resends++
			require.Equal(t, "Invite Resent", l.Title)
		}
	}
	require.Equal(t, 1, resends)
}
