package mail

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	InviteSubjectPrefix = "You're invited to join"
	ResendSubjectPrefix = "Your invitation has been resent to join"
)

// InviteLink builds the frontend redemption URL for a raw invite token.
func InviteLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/invitation/accept/?token=" + url.QueryEscape(token)
}

// InviteMessage renders the invitation email. resent switches the subject
// line used when an invite is re-issued.
func InviteMessage(to, name, organisation, link string, expiresAt time.Time, resent bool) Message {
	prefix := InviteSubjectPrefix
	if resent {
		prefix = ResendSubjectPrefix
	}

	body := fmt.Sprintf(`Hello %s,

You have been invited to join %s.

Accept the invite here:
%s

This link expires on %s`, name, organisation, link, expiresAt.UTC().Format("2 Jan 2006"))

	return Message{
		To:      to,
		Subject: prefix + " " + organisation,
		Body:    body,
	}
}
