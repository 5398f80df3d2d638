// Package twilio sends outbound WhatsApp/SMS messages and downloads inbound
// media through a pool of Twilio accounts.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"channel-relay/internal/domain"
)

// messageAPI is the subset of the Twilio REST API used here.
// *openapi.ApiService satisfies this interface.
type messageAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

type credentialSelector interface {
	Select(ctx context.Context) (domain.ChannelCredential, error)
}

type Option func(*Messenger)

// WithAPIFactory overrides how a REST client is built for a credential.
func WithAPIFactory(fn func(domain.ChannelCredential) messageAPI) Option {
	return func(m *Messenger) {
		m.newAPI = fn
	}
}

type Messenger struct {
	pool   credentialSelector
	newAPI func(domain.ChannelCredential) messageAPI

	mu   sync.Mutex
	apis map[string]messageAPI
}

func NewMessenger(pool credentialSelector, opts ...Option) (*Messenger, error) {
	if pool == nil {
		return nil, errors.New("twilio: credential pool must not be nil")
	}
	m := &Messenger{
		pool:   pool,
		newAPI: restAPI,
		apis:   map[string]messageAPI{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func restAPI(cred domain.ChannelCredential) messageAPI {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cred.AccountSID,
		Password: cred.AuthToken,
	})
	return client.Api
}

// SendText sends body from one channel address to another, e.g.
// "whatsapp:+14155238886" to "whatsapp:+15551234567".
func (m *Messenger) SendText(ctx context.Context, body, from, to string) (domain.Receipt, error) {
	if strings.TrimSpace(to) == "" {
		return domain.Receipt{}, errors.New("twilio: recipient must not be empty")
	}
	if strings.TrimSpace(from) == "" {
		return domain.Receipt{}, errors.New("twilio: sender must not be empty")
	}
	cred, err := m.pool.Select(ctx)
	if err != nil {
		return domain.Receipt{}, err
	}
	return m.create(cred, body, from, to)
}

// SendSMS sends body to a phone number from the selected account's number.
func (m *Messenger) SendSMS(ctx context.Context, to, body string) (domain.Receipt, error) {
	if strings.TrimSpace(to) == "" {
		return domain.Receipt{}, errors.New("twilio: recipient must not be empty")
	}
	cred, err := m.pool.Select(ctx)
	if err != nil {
		return domain.Receipt{}, err
	}
	if cred.FromNumber == "" {
		return domain.Receipt{}, fmt.Errorf("twilio: account %s has no from number", cred.AccountSID)
	}
	return m.create(cred, body, cred.FromNumber, to)
}

func (m *Messenger) create(cred domain.ChannelCredential, body, from, to string) (domain.Receipt, error) {
	params := &openapi.CreateMessageParams{}
	params.SetBody(body)
	params.SetFrom(from)
	params.SetTo(to)

	msg, err := m.api(cred).CreateMessage(params)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("twilio: create message: %w", err)
	}
	var receipt domain.Receipt
	if msg != nil {
		if msg.Sid != nil {
			receipt.SID = *msg.Sid
		}
		if msg.Status != nil {
			receipt.Status = *msg.Status
		}
	}
	return receipt, nil
}

func (m *Messenger) api(cred domain.ChannelCredential) messageAPI {
	m.mu.Lock()
	defer m.mu.Unlock()
	if api, ok := m.apis[cred.AccountSID]; ok {
		return api
	}
	api := m.newAPI(cred)
	m.apis[cred.AccountSID] = api
	return api
}
