package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/rollcall/internal/auth/mail"
	"github.com/aussiebroadwan/rollcall/internal/auth/metrics"
	"github.com/aussiebroadwan/rollcall/internal/auth/service"
	"github.com/aussiebroadwan/rollcall/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/rollcall/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testFrontendURL = "https://app.example.com"

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) last(t *testing.T) mail.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no mail sent")
	return f.sent[len(f.sent)-1]
}

func (f *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no mail sent")

	body := f.sent[len(f.sent)-1].Body
	prefix := testFrontendURL + "/invitation/accept/?token="
	i := strings.Index(body, prefix)
	require.GreaterOrEqual(t, i, 0, "mail has no invite link")
	token, _, _ := strings.Cut(body[i+len(prefix):], "\n")
	return token
}

type testServer struct {
	url    string
	client *authsdk.SDKClient
	mailer *fakeMailer
	redis  *miniredis.Miniredis
	creds  *jwtx.CredentialSigner
}

func newTestServer(t *testing.T) *testServer {
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
	activity := &service.ActivityService{Store: st}

	router := NewRouter(km, "test", st, sessions, slog.New(slog.DiscardHandler), m)
	router.AuthService = &service.AuthService{
		Store:       st,
		Sessions:    sessions,
		Credentials: creds,
		Hasher:      hasher,
		Activity:    activity,
		Metrics:     m,
	}
	router.InviteService = &service.InviteService{
		Store:       st,
		Hasher:      hasher,
		Mailer:      mailer,
		Activity:    activity,
		Metrics:     m,
		FrontendURL: testFrontendURL,
	}
	router.UserService = &service.UserService{
		Store:    st,
		Sessions: sessions,
		Activity: activity,
		Metrics:  m,
	}
	router.OrganisationService = &service.OrganisationService{Store: st, Activity: activity}
	router.ActivityService = activity
	router.MessageService = &service.MessageService{Mailer: mailer, Activity: activity}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{
		url:    srv.URL,
		client: authsdk.NewSDKClient(srv.URL),
		mailer: mailer,
		redis:  mr,
		creds:  creds,
	}
}

func accountRequest(email, orgEmail string) authsdk.CreateAccountRequest {
	return authsdk.CreateAccountRequest{
		Name:              "Alice",
		Email:             email,
		Password:          "secret-one",
		OrganisationName:  "Acme",
		OrganisationEmail: orgEmail,
	}
}

func (s *testServer) founder(t *testing.T) (*authsdk.Session, *authsdk.AuthResponse) {
	t.Helper()
	sess, resp, err := s.client.CreateAccount(context.Background(), accountRequest("alice@x.com", "org@x.com"))
	require.NoError(t, err)
	return sess, resp
}

// member invites email through sess and redeems the invite.
func (s *testServer) member(t *testing.T, sess *authsdk.Session, name, email string) *authsdk.UserResponse {
	t.Helper()
	ctx := context.Background()

	_, err := sess.SendInvite(ctx, authsdk.SendInviteRequest{Name: name, Email: email})
	require.NoError(t, err)

	u, err := s.client.AcceptInvite(ctx, s.mailer.lastToken(t), authsdk.AcceptInviteRequest{Password: "password-" + name})
	require.NoError(t, err)
	return u
}

// memberSession signs an access token for a user that may not log in.
func (s *testServer) memberSession(t *testing.T, u *authsdk.UserResponse) *authsdk.Session {
	t.Helper()
	token, err := s.creds.SignAccess(jwtx.Principal{
		Sub:            u.ID,
		Email:          u.Email,
		Name:           u.Name,
		IsAdmin:        u.IsAdmin,
		IsSuperUser:    u.IsSuperUser,
		OrganisationID: u.OrganisationID,
	})
	require.NoError(t, err)
	return s.client.NewSessionFromTokens(token, "")
}

func requireAPIError(t *testing.T, err error, status int, code string) *authsdk.APIError {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, authsdk.StatusOf(err), "err: %v", err)

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr), "expected *authsdk.APIError, got %T", err)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}
