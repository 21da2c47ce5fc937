//go:build e2e

package auth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/app"
	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * End-to-end helpers: Redis and Mailpit run in containers, the auth service
 * runs in-process with its production wiring against them.
 */

const (
	frontendURL = "https://app.example.com"

	founderName     = "Alice"
	founderEmail    = "alice@example.com"
	founderPassword = "alice-secret"
	orgName         = "Acme"
	orgEmail        = "hello@acme.example.com"
)

type environment struct {
	redisAddr string
	smtpHost  string
	smtpPort  int
	mailAPI   string
	dir       string
}

// startContainer runs image and returns its host and the mapped ports.
func startContainer(t *testing.T, req testcontainers.ContainerRequest, ports ...nat.Port) (string, map[nat.Port]string) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mapped := make(map[nat.Port]string, len(ports))
	for _, p := range ports {
		mp, err := container.MappedPort(ctx, p)
		require.NoError(t, err)
		mapped[p] = mp.Port()
	}
	return host, mapped
}

func setupEnvironment(t *testing.T) *environment {
	t.Helper()

	redisHost, redisPorts := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(60 * time.Second),
	}, "6379/tcp")

	mailHost, mailPorts := startContainer(t, testcontainers.ContainerRequest{
		Image:        "axllent/mailpit:latest",
		ExposedPorts: []string{"1025/tcp", "8025/tcp"},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8025/tcp").
			WithStartupTimeout(60 * time.Second),
	}, "1025/tcp", "8025/tcp")

	var smtpPort int
	_, err := fmt.Sscanf(mailPorts["1025/tcp"], "%d", &smtpPort)
	require.NoError(t, err)

	return &environment{
		redisAddr: fmt.Sprintf("%s:%s", redisHost, redisPorts["6379/tcp"]),
		smtpHost:  mailHost,
		smtpPort:  smtpPort,
		mailAPI:   fmt.Sprintf("http://%s:%s", mailHost, mailPorts["8025/tcp"]),
		dir:       t.TempDir(),
	}
}

func (e *environment) config() app.Config {
	return app.Config{
		Env:                  "test",
		LogLevel:             "warn",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  5 * time.Second,
		HousekeepingInterval: time.Hour,
		Issuer:               "rollcall-e2e",
		DatabaseFile:         filepath.Join(e.dir, "auth.db"),
		PepperFile:           filepath.Join(e.dir, "pepper"),
		SigningKeyFile:       filepath.Join(e.dir, "signing.pem"),
		AccessTTL:            15 * time.Minute,
		RefreshTTL:           24 * time.Hour,
		InviteExpiryDays:     7,
		FrontendURL:          frontendURL,
		RedisAddr:            e.redisAddr,
		StoreTimeout:         5 * time.Second,
		StartupTimeout:       30 * time.Second,
		SMTPHost:             e.smtpHost,
		SMTPPort:             e.smtpPort,
		MailFrom:             "no-reply@rollcall.example.com",
	}
}

// startService boots an application instance over the shared environment.
// Instances share the database, pepper, signing key and Redis, so several
// may run side by side like replicas.
func (e *environment) startService(t *testing.T) *authsdk.SDKClient {
	t.Helper()

	application, err := app.New(e.config())
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = application.Shutdown()
	})

	return authsdk.NewSDKClient(srv.URL)
}

func createFounder(t *testing.T, client *authsdk.SDKClient) (*authsdk.Session, *authsdk.AuthResponse) {
	t.Helper()

	sess, resp, err := client.CreateAccount(context.Background(), authsdk.CreateAccountRequest{
		Name:              founderName,
		Email:             founderEmail,
		Password:          founderPassword,
		OrganisationName:  orgName,
		OrganisationEmail: orgEmail,
	})
	require.NoError(t, err)
	return sess, resp
}

type mailpitList struct {
	Messages []struct {
		ID string `json:"ID"`
		To []struct {
			Address string `json:"Address"`
		} `json:"To"`
		Subject string `json:"Subject"`
	} `json:"messages"`
}

type mailpitMessage struct {
	Subject string `json:"Subject"`
	Text    string `json:"Text"`
}

func getJSON(t *testing.T, url string, dst any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, url)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

// latestMail waits for the newest mail addressed to recipient. Mailpit lists
// newest first and decodes encoded headers.
func (e *environment) latestMail(t *testing.T, recipient string) mailpitMessage {
	t.Helper()

	var id string
	require.Eventually(t, func() bool {
		var list mailpitList
		getJSON(t, e.mailAPI+"/api/v1/messages", &list)
		for _, m := range list.Messages {
			for _, to := range m.To {
				if strings.EqualFold(to.Address, recipient) {
					id = m.ID
					return true
				}
			}
		}
		return false
	}, 10*time.Second, 100*time.Millisecond, "no mail for %s", recipient)

	var msg mailpitMessage
	getJSON(t, e.mailAPI+"/api/v1/message/"+id, &msg)
	return msg
}

// inviteToken pulls the invite token out of the newest mail to recipient.
func (e *environment) inviteToken(t *testing.T, recipient string) (string, string) {
	t.Helper()
	msg := e.latestMail(t, recipient)

	prefix := frontendURL + "/invitation/accept/?token="
	i := strings.Index(msg.Text, prefix)
	require.GreaterOrEqual(t, i, 0, "mail has no invite link: %q", msg.Text)

	raw := msg.Text[i+len(prefix):]
	if end := strings.IndexAny(raw, "\r\n"); end >= 0 {
		raw = raw[:end]
	}
	token, err := url.QueryUnescape(strings.TrimSpace(raw))
	require.NoError(t, err)
	return token, msg.Subject
}

// clearMail empties the Mailpit inbox.
func (e *environment) clearMail(t *testing.T) {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, e.mailAPI+"/api/v1/messages", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, authsdk.StatusOf(err), "err: %v", err)
}
