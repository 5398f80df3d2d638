package twilio

import (
	"context"
	"errors"
	"net/url"

	"github.com/twilio/twilio-go/client"

	"channel-relay/internal/domain"
)

// ErrInvalidSignature is returned when a webhook is not signed by any pooled account.
var ErrInvalidSignature = errors.New("twilio: invalid request signature")

type credentialLister interface {
	All(ctx context.Context) ([]domain.ChannelCredential, error)
}

// SignatureVerifier checks the X-Twilio-Signature of inbound webhooks against
// the auth tokens of the credential pool.
type SignatureVerifier struct {
	pool credentialLister
}

func NewSignatureVerifier(pool credentialLister) (*SignatureVerifier, error) {
	if pool == nil {
		return nil, errors.New("twilio: credential pool must not be nil")
	}
	return &SignatureVerifier{pool: pool}, nil
}

// Verify reports whether signature matches webhookURL and params for one of
// the pooled accounts.
func (v *SignatureVerifier) Verify(ctx context.Context, webhookURL string, params url.Values, signature string) error {
	if signature == "" {
		return ErrInvalidSignature
	}
	creds, err := v.pool.All(ctx)
	if err != nil {
		return err
	}
	flat := make(map[string]string, len(params))
	for k := range params {
		flat[k] = params.Get(k)
	}
	for _, c := range creds {
		validator := client.NewRequestValidator(c.AuthToken)
		if validator.Validate(webhookURL, flat, signature) {
			return nil
		}
	}
	return ErrInvalidSignature
}
