package twilio

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"channel-relay/internal/domain"
)

var testCreds = []domain.ChannelCredential{
	{AccountSID: "AC1", AuthToken: "tok1", FromNumber: "+17855550001"},
	{AccountSID: "AC2", AuthToken: "tok2", FromNumber: "+12185550002"},
}

func staticSource(creds []domain.ChannelCredential) CredentialSource {
	return func(context.Context) ([]domain.ChannelCredential, error) { return creds, nil }
}

type fakeMessageAPI struct {
	account string
	params  []*openapi.CreateMessageParams
	err     error
}

func (f *fakeMessageAPI) CreateMessage(p *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	sid, status := "SM123", "queued"
	return &openapi.ApiV2010Message{Sid: &sid, Status: &status}, nil
}

func newTestMessenger(t *testing.T, api *fakeMessageAPI) *Messenger {
	t.Helper()
	pool, err := NewCredentialPool(staticSource(testCreds), FirstPolicy{})
	require.NoError(t, err)
	m, err := NewMessenger(pool, WithAPIFactory(func(c domain.ChannelCredential) messageAPI {
		api.account = c.AccountSID
		return api
	}))
	require.NoError(t, err)
	return m
}

func TestFirstPolicy(t *testing.T) {
	c, err := FirstPolicy{}.Select(testCreds)
	require.NoError(t, err)
	require.Equal(t, "AC1", c.AccountSID)

	_, err = FirstPolicy{}.Select(nil)
	require.ErrorContains(t, err, "empty")
}

func TestCredentialPool_RetriesFailedLoad(t *testing.T) {
	calls := 0
	pool, err := NewCredentialPool(func(context.Context) ([]domain.ChannelCredential, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("ssm unavailable")
		}
		return testCreds, nil
	}, nil)
	require.NoError(t, err)

	_, err = pool.Select(context.Background())
	require.ErrorContains(t, err, "ssm unavailable")

	c, err := pool.Select(context.Background())
	require.NoError(t, err)
	require.Equal(t, "AC1", c.AccountSID)

	_, _ = pool.Select(context.Background())
	require.Equal(t, 2, calls, "credentials are cached after a successful load")
}

func TestCredentialPool_RejectsIncompleteCredential(t *testing.T) {
	pool, err := NewCredentialPool(staticSource([]domain.ChannelCredential{{AccountSID: "AC1"}}), nil)
	require.NoError(t, err)
	_, err = pool.Select(context.Background())
	require.ErrorContains(t, err, "missing accountSid or authToken")
}

func TestStaticCredentials(t *testing.T) {
	creds, err := StaticCredentials(`[{"accountSid":"AC9","authToken":"t","fromNo":"+1"}]`)(context.Background())
	require.NoError(t, err)
	require.Equal(t, []domain.ChannelCredential{{AccountSID: "AC9", AuthToken: "t", FromNumber: "+1"}}, creds)

	_, err = StaticCredentials(`nope`)(context.Background())
	require.ErrorContains(t, err, "decode credentials")
}

type stubGetter struct{ val string }

func (s stubGetter) GetParameter(context.Context, string) (string, error) { return s.val, nil }

func TestParamCredentials(t *testing.T) {
	creds, err := ParamCredentials(stubGetter{val: `[{"accountSid":"AC7","authToken":"t"}]`}, "/p/twilio/credentials")(context.Background())
	require.NoError(t, err)
	require.Equal(t, "AC7", creds[0].AccountSID)
}

func TestSendText_UsesFirstCredential(t *testing.T) {
	api := &fakeMessageAPI{}
	m := newTestMessenger(t, api)

	receipt, err := m.SendText(context.Background(), "hello", "whatsapp:+14155238886", "whatsapp:+15551234567")
	require.NoError(t, err)
	require.Equal(t, domain.Receipt{SID: "SM123", Status: "queued"}, receipt)
	require.Equal(t, "AC1", api.account)
	require.Len(t, api.params, 1)
	require.Equal(t, "hello", *api.params[0].Body)
	require.Equal(t, "whatsapp:+14155238886", *api.params[0].From)
	require.Equal(t, "whatsapp:+15551234567", *api.params[0].To)
}

func TestSendText_Validation(t *testing.T) {
	m := newTestMessenger(t, &fakeMessageAPI{})
	_, err := m.SendText(context.Background(), "hi", "whatsapp:+1", "")
	require.Error(t, err)
	_, err = m.SendText(context.Background(), "hi", "", "whatsapp:+1")
	require.Error(t, err)
}

func TestSendText_APIError(t *testing.T) {
	m := newTestMessenger(t, &fakeMessageAPI{err: errors.New("21211 invalid To")})
	_, err := m.SendText(context.Background(), "hi", "whatsapp:+1", "whatsapp:+2")
	require.ErrorContains(t, err, "21211")
}

func TestSendSMS_UsesCredentialFromNumber(t *testing.T) {
	api := &fakeMessageAPI{}
	m := newTestMessenger(t, api)

	_, err := m.SendSMS(context.Background(), "+15551234567", "hi")
	require.NoError(t, err)
	require.Equal(t, "+17855550001", *api.params[0].From)
	require.Equal(t, "+15551234567", *api.params[0].To)
}

func TestMediaFetcher_Fetch(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC1" || pass != "tok1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("unauthorized"))
			return
		}
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/media", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "audio/ogg")
		_, _ = w.Write([]byte("OggS-bytes"))
	}))
	defer srv.Close()

	pool, err := NewCredentialPool(staticSource(testCreds), nil)
	require.NoError(t, err)
	f, err := NewMediaFetcher(pool, WithHTTPClient(srv.Client()), WithMediaHosts("127.0.0.1"))
	require.NoError(t, err)

	buf, err := f.Fetch(context.Background(), srv.URL+"/media")
	require.NoError(t, err)
	require.Equal(t, "OggS-bytes", string(buf))

	_, err = f.Fetch(context.Background(), "")
	require.Error(t, err)
}

func TestMediaFetcher_StatusError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("gone"))
	}))
	defer srv.Close()

	pool, err := NewCredentialPool(staticSource(testCreds), nil)
	require.NoError(t, err)
	f, err := NewMediaFetcher(pool, WithHTTPClient(srv.Client()), WithMediaHosts("127.0.0.1"))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL)
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.HTTPStatusCode())
	require.Equal(t, "gone", statusErr.Body)
}

func TestMediaFetcher_RefusesOtherHosts(t *testing.T) {
	var hits int
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	pool, err := NewCredentialPool(staticSource(testCreds), nil)
	require.NoError(t, err)
	f, err := NewMediaFetcher(pool, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL+"/media")
	require.ErrorContains(t, err, "not allowed")

	_, err = f.Fetch(context.Background(), "http://api.twilio.com/2010-04-01/Accounts/AC1/Messages/MM1/Media/ME1")
	require.ErrorContains(t, err, "https")

	_, err = f.Fetch(context.Background(), "https://api.twilio.com.evil.example/x")
	require.ErrorContains(t, err, "not allowed")
	require.Zero(t, hits)
}

func TestMediaFetcher_DefaultHost(t *testing.T) {
	pool, err := NewCredentialPool(staticSource(testCreds), nil)
	require.NoError(t, err)
	f, err := NewMediaFetcher(pool)
	require.NoError(t, err)

	require.NoError(t, f.checkURL("https://api.twilio.com/2010-04-01/Accounts/AC1/Messages/MM1/Media/ME1"))
	require.NoError(t, f.checkURL("https://API.twilio.com:443/x"))
	require.Error(t, f.checkURL("https://attacker.example/x"))
}

// sign computes an X-Twilio-Signature: base64 HMAC-SHA1 over the URL
// followed by the sorted parameters.
func sign(token, webhookURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(webhookURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSignatureVerifier(t *testing.T) {
	pool, err := NewCredentialPool(staticSource(testCreds), nil)
	require.NoError(t, err)
	v, err := NewSignatureVerifier(pool)
	require.NoError(t, err)

	const hook = "https://relay.example.com/whatsapp-callback"
	params := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"hola"}, "MessageSid": {"SM1"}}
	ctx := context.Background()

	require.NoError(t, v.Verify(ctx, hook, params, sign("tok1", hook, params)))
	require.NoError(t, v.Verify(ctx, hook, params, sign("tok2", hook, params)), "any pooled account may sign")

	require.ErrorIs(t, v.Verify(ctx, hook, params, ""), ErrInvalidSignature)
	require.ErrorIs(t, v.Verify(ctx, hook, params, sign("other", hook, params)), ErrInvalidSignature)

	tampered := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"hola"}, "MessageSid": {"SM1"},
		"MediaUrl0": {"https://attacker.example/x"}}
	require.ErrorIs(t, v.Verify(ctx, hook, tampered, sign("tok1", hook, params)), ErrInvalidSignature)

	_, err = NewSignatureVerifier(nil)
	require.Error(t, err)
}

func TestCredentialPool_All(t *testing.T) {
	pool, err := NewCredentialPool(staticSource(testCreds), nil)
	require.NoError(t, err)
	all, err := pool.All(context.Background())
	require.NoError(t, err)
	require.Equal(t, testCreds, all)
}
