package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/mail"
	"github.com/aussiebroadwan/rollcall/internal/auth/metrics"
	"github.com/aussiebroadwan/rollcall/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/rollcall/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testFrontendURL = "https://app.example.com"

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeMailer) last(t *testing.T) mail.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no mail sent")
	return f.sent[len(f.sent)-1]
}

// lastToken extracts the raw invite token from the most recent email.
func (f *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	body := f.last(t).Body

	prefix := testFrontendURL + "/invitation/accept/?token="
	i := strings.Index(body, prefix)
	require.GreaterOrEqual(t, i, 0, "mail has no invite link")
	token, _, _ := strings.Cut(body[i+len(prefix):], "\n")
	return token
}

type testEnv struct {
	store    *sqlite.Store
	sessions *redis.Sessions
	redis    *miniredis.Miniredis
	mailer   *fakeMailer
	activity *ActivityService
	auth     *AuthService
	invites  *InviteService
	users    *UserService
	orgs     *OrganisationService
	messages *MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	mr := miniredis.RunT(t)
	sessions := redis.NewSessions(redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = sessions.Close() })

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: "rollcall-test"})
	require.NoError(t, err)
	creds := jwtx.NewCredentialSigner(km, jwtx.CredentialOptions{Issuer: "rollcall-test"})

	hasher := cryptox.NewHasher("test-pepper")
	m := metrics.New()
	mailer := &fakeMailer{}
	activity := &ActivityService{Store: st}

	return &testEnv{
		store:    st,
		sessions: sessions,
		redis:    mr,
		mailer:   mailer,
		activity: activity,
		auth: &AuthService{
			Store:       st,
			Sessions:    sessions,
			Credentials: creds,
			Hasher:      hasher,
			Activity:    activity,
			Metrics:     m,
		},
		invites: &InviteService{
			Store:       st,
			Hasher:      hasher,
			Mailer:      mailer,
			Activity:    activity,
			Metrics:     m,
			FrontendURL: testFrontendURL,
		},
		users: &UserService{
			Store:    st,
			Sessions: sessions,
			Activity: activity,
			Metrics:  m,
		},
		orgs:     &OrganisationService{Store: st, Activity: activity},
		messages: &MessageService{Mailer: mailer, Activity: activity},
	}
}

func founderInput(email, orgEmail string) CreateAccountInput {
	return CreateAccountInput{
		Name:              "A",
		Email:             email,
		Password:          "secret1",
		OrganisationName:  "Acme",
		OrganisationEmail: orgEmail,
	}
}

// founder creates an account and returns its session and identity.
func (e *testEnv) founder(t *testing.T, email, orgEmail string) (domain.Session, domain.Identity) {
	t.Helper()
	sess, err := e.auth.CreateAccount(context.Background(), founderInput(email, orgEmail))
	require.NoError(t, err)
	return sess, sess.User.Identity()
}

// member invites email into actor's organisation and redeems it.
func (e *testEnv) member(t *testing.T, actor domain.Identity, name, email string) domain.User {
	t.Helper()
	ctx := context.Background()

	_, err := e.invites.Send(ctx, SendInviteInput{
		InvitedBy:      actor.Sub,
		OrganisationID: actor.OrganisationID,
		Name:           name,
		Email:          email,
	})
	require.NoError(t, err)

	u, err := e.invites.Accept(ctx, AcceptInviteInput{Token: e.mailer.lastToken(t), Password: "pw-" + name})
	require.NoError(t, err)
	return u
}

func requireKind(t *testing.T, err, kind error) *Error {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)

	var se *Error
	require.True(t, errors.As(err, &se), "expected *service.Error, got %T", err)
	return se
}
