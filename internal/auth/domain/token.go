package domain

// TokenPair is what login, account creation and refresh hand back to the
// caller: a short-lived access JWT and a revocable refresh JWT.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session is the outcome of account creation or login.
type Session struct {
	TokenPair
	User User
}
