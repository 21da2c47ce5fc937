package http

import (
	"strings"
	"unicode"

	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	minPassword    = 6
	minNewPassword = 8
	maxPassword    = 128
	maxName        = 200
	maxEmail       = 254
	maxSubject     = 200
	maxMessage     = 10000
)

// singleLine rejects control characters. Names end up in mail headers.
var singleLine = validation.NewStringRule(func(s string) bool {
	return !strings.ContainsFunc(s, unicode.IsControl)
}, "must not contain control characters")

// normalizeEmail trims and lowercases an address so validation sees the
// form that is stored.
func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validateCreateAccount(r authsdk.CreateAccountRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, maxName), singleLine),
		validation.Field(&r.Email, validation.Required, validation.Length(3, maxEmail), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(minPassword, maxPassword)),
		validation.Field(&r.OrganisationName, validation.Required, validation.Length(1, maxName), singleLine),
		validation.Field(&r.OrganisationEmail, validation.Required, validation.Length(3, maxEmail), is.Email),
	)
}

func validateLogin(r authsdk.LoginRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, maxEmail), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, maxPassword)),
	)
}

func validateChangePassword(r authsdk.ChangePasswordRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required, validation.Length(1, maxPassword)),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(minNewPassword, maxPassword)),
	)
}

func validateSendInvite(r authsdk.SendInviteRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, maxName), singleLine),
		validation.Field(&r.Email, validation.Required, validation.Length(3, maxEmail), is.Email),
	)
}

// Name and email may be omitted to take the invitation's.
func validateAcceptInvite(r authsdk.AcceptInviteRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, maxName), singleLine),
		validation.Field(&r.Email, validation.Length(3, maxEmail), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(minPassword, maxPassword)),
	)
}

func validateUpdateOrganisation(r authsdk.UpdateOrganisationRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, maxName), singleLine),
		validation.Field(&r.Email, validation.Required, validation.Length(3, maxEmail), is.Email),
	)
}

func validateSendMessage(r authsdk.SendMessageRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.To, validation.Required, validation.Length(3, maxEmail), is.Email),
		validation.Field(&r.Subject, validation.Required, validation.Length(1, maxSubject), singleLine),
		validation.Field(&r.Message, validation.Required, validation.Length(1, maxMessage)),
	)
}
