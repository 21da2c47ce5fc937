package mail

import (
	"bufio"
	"context"
	"net"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInviteLink(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		"https://app.example.com/invitation/accept/?token=abc-_123",
		InviteLink("https://app.example.com/", "abc-_123"),
	)
}

func TestInviteMessage(t *testing.T) {
	t.Parallel()

	exp := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	sent := InviteMessage("bob@x.com", "Bob", "Acme", "http://l", exp, false)
	require.Equal(t, "bob@x.com", sent.To)
	require.Equal(t, "You're invited to join Acme", sent.Subject)
	require.Contains(t, sent.Body, "Hello Bob,")
	require.Contains(t, sent.Body, "http://l")
	require.Contains(t, sent.Body, "9 Mar 2026")

	resent := InviteMessage("bob@x.com", "Bob", "Acme", "http://l", exp, true)
	require.Equal(t, "Your invitation has been resent to join Acme", resent.Subject)
}

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Message
		ok   bool
	}{
		{"valid", Message{To: "a@x.com", Subject: "hi"}, true},
		{"no recipient", Message{Subject: "hi"}, false},
		{"no subject", Message{To: "a@x.com"}, false},
		{"header injection", Message{To: "a@x.com\r\nBcc: b@x.com", Subject: "hi"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidMessage)
			}
		})
	}
}

func TestLogSender(t *testing.T) {
	t.Parallel()

	require.NoError(t, LogSender{}.Send(context.Background(), Message{To: "a@x.com", Subject: "hi"}))
	require.ErrorIs(t, LogSender{}.Send(context.Background(), Message{}), ErrInvalidMessage)
}

func TestNewSMTPSender(t *testing.T) {
	t.Parallel()

	_, err := NewSMTPSender(SMTPOptions{From: "a@x.com"})
	require.Error(t, err)

	s, err := NewSMTPSender(SMTPOptions{Host: "localhost", From: "a@x.com"})
	require.NoError(t, err)
	require.Equal(t, 587, s.opts.Port)
}

// smtpServer is a minimal SMTP endpoint that accepts every command and
// records the DATA payload of each message.
type smtpServer struct {
	ln   net.Listener
	mu   sync.Mutex
	data []string
}

func newSMTPServer(t *testing.T, greet bool) *smtpServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &smtpServer{ln: ln}
	var conns []net.Conn
	var connsMu sync.Mutex

	t.Cleanup(func() {
		_ = ln.Close()
		connsMu.Lock()
		for _, c := range conns {
			_ = c.Close()
		}
		connsMu.Unlock()
	})

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			connsMu.Lock()
			conns = append(conns, conn)
			connsMu.Unlock()

			// A silent server holds the connection open and never answers.
			if greet {
				go srv.serve(conn)
			}
		}
	}()
	return srv
}

func (s *smtpServer) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	reply("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 localhost")
		case cmd == "DATA":
			reply("354 end with <CRLF>.<CRLF>")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			s.mu.Lock()
			s.data = append(s.data, b.String())
			s.mu.Unlock()
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func (s *smtpServer) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.data...)
}

func (s *smtpServer) sender(t *testing.T, timeout time.Duration) *SMTPSender {
	t.Helper()

	host, port, err := net.SplitHostPort(s.ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	sender, err := NewSMTPSender(SMTPOptions{Host: host, Port: p, From: "no-reply@x.com", Timeout: timeout})
	require.NoError(t, err)
	return sender
}

func TestSMTPSenderDelivers(t *testing.T) {
	t.Parallel()

	srv := newSMTPServer(t, true)
	s := srv.sender(t, 5*time.Second)

	err := s.Send(context.Background(), Message{
		To:      "bob@x.com",
		Subject: "You're invited to join Café Zoë",
		Body:    "line1\nline2",
	})
	require.NoError(t, err)

	msgs := srv.messages()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "Subject: =?UTF-8?")
	require.NotContains(t, msgs[0], "Café")
	require.Contains(t, msgs[0], "line1")
	require.Contains(t, msgs[0], "line2")
}

func TestSMTPSenderRejectsBadAddress(t *testing.T) {
	t.Parallel()

	srv := newSMTPServer(t, true)
	s := srv.sender(t, 5*time.Second)

	err := s.Send(context.Background(), Message{To: "not an address", Subject: "hi"})
	require.ErrorIs(t, err, ErrInvalidMessage)
	require.Empty(t, srv.messages())
}

// Not parallel: counts goroutines.
func TestSMTPSenderStalledServer(t *testing.T) {
	srv := newSMTPServer(t, false)
	s := srv.sender(t, 50*time.Millisecond)

	before := runtime.NumGoroutine()

	for range 10 {
		start := time.Now()
		err := s.Send(context.Background(), Message{To: "bob@x.com", Subject: "hi"})
		require.Error(t, err)
		require.Less(t, time.Since(start), 2*time.Second)
	}

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSMTPSenderHonoursContext(t *testing.T) {
	t.Parallel()

	srv := newSMTPServer(t, false)
	s := srv.sender(t, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.Error(t, s.Send(ctx, Message{To: "bob@x.com", Subject: "hi"}))
	require.Less(t, time.Since(start), 5*time.Second)
}
