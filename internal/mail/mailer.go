package mail

import "context"

type SendActivationCodeInput struct {
	Email string
	Name  string
	Code  string
}

// Mailer delivers the activation code out of band. Registration fails
// when delivery fails: a token whose code never reached the user is
// useless, so no token is considered issued without a successful send.
type Mailer interface {
	SendActivationCode(ctx context.Context, input SendActivationCodeInput) error
}
