package domain

import "time"

// ActivityKind identifies an organisation activity log entry.
type ActivityKind string

const (
	ActivityJoined       ActivityKind = "joined"
	ActivityInviteSent   ActivityKind = "invite_sent"
	ActivityInviteResent ActivityKind = "invite_resent"
	ActivityUserRemoved  ActivityKind = "user_removed"
	ActivityRoleUpgrade  ActivityKind = "role_upgrade"
	ActivityOrgUpdated   ActivityKind = "organisation_updated"
	ActivityMessageSent  ActivityKind = "message_sent"
)

// Title is the human readable heading shown in the activity feed.
func (k ActivityKind) Title() string {
	switch k {
	case ActivityJoined:
		return "Joined"
	case ActivityInviteSent:
		return "Invite Sent"
	case ActivityInviteResent:
		return "Invite Resent"
	case ActivityUserRemoved:
		return "Remove User"
	case ActivityRoleUpgrade:
		return "Role Upgrade"
	case ActivityOrgUpdated:
		return "Organisation Updated"
	case ActivityMessageSent:
		return "Message Sent"
	default:
		return string(k)
	}
}

type Activity struct {
	ID             string
	Kind           ActivityKind
	Title          string
	Description    string
	UserID         string
	OrganisationID string
	CreatedAt      time.Time
}
