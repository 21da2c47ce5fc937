/*
Package authsdk is a client for the rollcall auth service and the home of
its JSON wire types.

# SDKClient vs Session

SDKClient performs the public operations: account creation, login, token
refresh, logout, invite lookup and acceptance, health and JWKS. Account
creation and login return a Session, which carries the access and refresh
tokens and performs the authenticated operations:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, _, err := client.Login(ctx, "a@x.com", "secret1")
	if err != nil {
		return err
	}

	inv, err := session.SendInvite(ctx, authsdk.SendInviteRequest{
		Name:  "Bob",
		Email: "bob@x.com",
	})

A Session rotates its tokens once when a request is rejected with 401 and
retries it. Refresh tokens are single use: after a rotation the previous
refresh token is revoked.

# Errors

Every non-2xx response is returned as an *APIError carrying the status, the
machine readable code and, for validation failures, per-field details:

	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeValidation {
		for field, problem := range apiErr.Details {
			...
		}
	}

# Invites

Invite tokens are delivered by email only. The recipient looks the invite
up with GetInvite and redeems it with AcceptInvite; each token works once
and only until it expires.
*/
package authsdk
