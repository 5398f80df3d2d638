package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"channel-relay/internal/domain"
	"channel-relay/internal/integrations/paramstore"
)

// SelectionPolicy picks the credential used for a send.
type SelectionPolicy interface {
	Select(creds []domain.ChannelCredential) (domain.ChannelCredential, error)
}

// FirstPolicy always returns the first credential in the pool.
type FirstPolicy struct{}

func (FirstPolicy) Select(creds []domain.ChannelCredential) (domain.ChannelCredential, error) {
	if len(creds) == 0 {
		return domain.ChannelCredential{}, errors.New("twilio: credential pool is empty")
	}
	return creds[0], nil
}

// CredentialSource loads the credential list.
type CredentialSource func(ctx context.Context) ([]domain.ChannelCredential, error)

// StaticCredentials parses a JSON list of credentials once per load.
func StaticCredentials(raw string) CredentialSource {
	return func(context.Context) ([]domain.ChannelCredential, error) {
		var creds []domain.ChannelCredential
		if err := json.Unmarshal([]byte(raw), &creds); err != nil {
			return nil, fmt.Errorf("twilio: decode credentials: %w", err)
		}
		return creds, nil
	}
}

// ParamCredentials reads the JSON credential list from SSM.
func ParamCredentials(g paramstore.Getter, name string) CredentialSource {
	return func(ctx context.Context) ([]domain.ChannelCredential, error) {
		var creds []domain.ChannelCredential
		if err := paramstore.GetJSON(ctx, g, name, &creds); err != nil {
			return nil, fmt.Errorf("twilio: load credentials: %w", err)
		}
		return creds, nil
	}
}

// CredentialPool loads credentials on first use. A failed load is retried on
// the next call instead of being cached.
type CredentialPool struct {
	source CredentialSource
	policy SelectionPolicy

	mu     sync.Mutex
	loaded bool
	creds  []domain.ChannelCredential
}

func NewCredentialPool(source CredentialSource, policy SelectionPolicy) (*CredentialPool, error) {
	if source == nil {
		return nil, errors.New("twilio: credential source must not be nil")
	}
	if policy == nil {
		policy = FirstPolicy{}
	}
	return &CredentialPool{source: source, policy: policy}, nil
}

func (p *CredentialPool) Select(ctx context.Context) (domain.ChannelCredential, error) {
	creds, err := p.load(ctx)
	if err != nil {
		return domain.ChannelCredential{}, err
	}
	return p.policy.Select(creds)
}

// All returns every credential in the pool.
func (p *CredentialPool) All(ctx context.Context) ([]domain.ChannelCredential, error) {
	creds, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]domain.ChannelCredential(nil), creds...), nil
}

func (p *CredentialPool) load(ctx context.Context) ([]domain.ChannelCredential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.creds, nil
	}

	creds, err := p.source(ctx)
	if err != nil {
		return nil, err
	}
	for i, c := range creds {
		if strings.TrimSpace(c.AccountSID) == "" || strings.TrimSpace(c.AuthToken) == "" {
			return nil, fmt.Errorf("twilio: credential %d is missing accountSid or authToken", i)
		}
	}
	p.creds = creds
	p.loaded = true
	return creds, nil
}
