// Package dialogflow wraps the Dialogflow CX sessions API and flattens its
// responses into domain.TurnResult.
package dialogflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	cx "cloud.google.com/go/dialogflow/cx/apiv3"
	"cloud.google.com/go/dialogflow/cx/apiv3/cxpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"channel-relay/internal/domain"
)

// sessionsAPI is the subset of *cx.SessionsClient used here.
type sessionsAPI interface {
	DetectIntent(ctx context.Context, req *cxpb.DetectIntentRequest, opts ...gax.CallOption) (*cxpb.DetectIntentResponse, error)
}

// Agent identifies one Dialogflow CX agent.
type Agent struct {
	ProjectID       string
	Location        string
	AgentID         string
	DefaultLanguage string
}

type Client struct {
	api   sessionsAPI
	agent Agent
}

// Dial opens a sessions client against a regional endpoint such as
// "asia-south1-dialogflow.googleapis.com:443".
func Dial(ctx context.Context, endpoint string, opts ...option.ClientOption) (*cx.SessionsClient, error) {
	opts = append([]option.ClientOption{option.WithEndpoint(endpoint)}, opts...)
	c, err := cx.NewSessionsClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dialogflow: create sessions client: %w", err)
	}
	return c, nil
}

func New(api sessionsAPI, agent Agent) (*Client, error) {
	if api == nil {
		return nil, errors.New("dialogflow: api must not be nil")
	}
	if strings.TrimSpace(agent.ProjectID) == "" || strings.TrimSpace(agent.Location) == "" || strings.TrimSpace(agent.AgentID) == "" {
		return nil, errors.New("dialogflow: project, location and agent id are required")
	}
	if agent.DefaultLanguage == "" {
		agent.DefaultLanguage = "en"
	}
	return &Client{api: api, agent: agent}, nil
}

func (c *Client) Agent() Agent {
	return c.agent
}

// SessionPath returns the fully qualified session resource name.
func (c *Client) SessionPath(sessionID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/agents/%s/sessions/%s",
		c.agent.ProjectID, c.agent.Location, c.agent.AgentID, sessionID)
}

// SendMessage sends one text turn to the agent. Failures are returned as-is
// without retry.
func (c *Client) SendMessage(ctx context.Context, text, sessionID, languageCode string) (domain.TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.TurnResult{}, errors.New("dialogflow: text must not be empty")
	}
	if strings.TrimSpace(sessionID) == "" {
		return domain.TurnResult{}, errors.New("dialogflow: session id must not be empty")
	}
	if languageCode == "" {
		languageCode = c.agent.DefaultLanguage
	}

	path := c.SessionPath(sessionID)
	slog.DebugContext(ctx, "dialogflow detect intent", "session", path, "language", languageCode)

	resp, err := c.api.DetectIntent(ctx, &cxpb.DetectIntentRequest{
		Session: path,
		QueryInput: &cxpb.QueryInput{
			Input: &cxpb.QueryInput_Text{
				Text: &cxpb.TextInput{Text: text},
			},
			LanguageCode: languageCode,
		},
	})
	if err != nil {
		return domain.TurnResult{}, fmt.Errorf("dialogflow: detect intent: %w", err)
	}
	if resp.GetQueryResult() == nil {
		return domain.TurnResult{}, errors.New("dialogflow: response missing query result")
	}
	return Flatten(resp), nil
}

// Flatten reshapes a DetectIntent response. Reply fragments keep the order of
// the agent's text response messages.
func Flatten(resp *cxpb.DetectIntentResponse) domain.TurnResult {
	qr := resp.GetQueryResult()
	out := domain.TurnResult{
		ResponseID:   resp.GetResponseId(),
		Messages:     []string{},
		Parameters:   map[string]any{},
		LanguageCode: qr.GetLanguageCode(),
		QueryText:    qr.GetText(),
	}

	for _, m := range qr.GetResponseMessages() {
		if t := m.GetText(); t != nil {
			out.Messages = append(out.Messages, t.GetText()...)
		}
	}

	if match := qr.GetMatch(); match.GetIntent() != nil {
		out.Intent = &domain.Intent{
			Name:        match.GetIntent().GetName(),
			DisplayName: match.GetIntent().GetDisplayName(),
			Confidence:  float64(match.GetConfidence()),
		}
	} else if intent := qr.GetIntent(); intent != nil {
		out.Intent = &domain.Intent{
			Name:        intent.GetName(),
			DisplayName: intent.GetDisplayName(),
			Confidence:  float64(qr.GetIntentDetectionConfidence()),
		}
	}

	if params := qr.GetParameters(); params != nil {
		out.Parameters = params.AsMap()
	}

	if page := qr.GetCurrentPage(); page != nil {
		out.CurrentPage = &domain.Page{
			Name:        page.GetName(),
			DisplayName: page.GetDisplayName(),
		}
	}
	return out
}
