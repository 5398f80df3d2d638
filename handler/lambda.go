package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
)

// Handle adapts an API Gateway proxy event to the HTTP router.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp, err := h.proxy.ProxyWithContext(ctx, event)
	if err != nil {
		logger(ctx).Error("proxy event failed", "path", event.Path, "err", err)
	}
	return resp, err
}
