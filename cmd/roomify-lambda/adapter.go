package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"go.uber.org/zap"

	"roomify/logging"
)

// Handler serves API Gateway proxy events through an http.Handler.
type Handler struct {
	next    http.Handler
	adapter *httpadapter.HandlerAdapter
	logger  *logging.Logger
}

// NewHandler wraps next.
func NewHandler(next http.Handler, logger *logging.Logger) *Handler {
	return &Handler{
		next:    next,
		adapter: httpadapter.New(next),
		logger:  logger.Named("lambda"),
	}
}

// Handle serves one proxy event. A malformed event is answered with 400
// rather than failing the invocation.
func (h *Handler) Handle(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ev = withRequestID(ev)

	req, err := h.adapter.EventToRequestWithContext(ctx, ev)
	if err != nil {
		h.logger.Warn("Malformed gateway event",
			zap.String("request_id", ev.RequestContext.RequestID),
			zap.Error(err),
		)
		return errorResponse(http.StatusBadRequest, "bad_request", "malformed gateway event"), nil
	}

	w := core.NewProxyResponseWriter()
	h.next.ServeHTTP(w, req)

	resp, err := w.GetProxyResponse()
	if err != nil {
		h.logger.Error("Failed to build gateway response",
			zap.String("request_id", ev.RequestContext.RequestID),
			zap.Error(err),
		)
		return errorResponse(http.StatusInternalServerError, "internal_error", "empty response"), nil
	}
	return resp, nil
}

// withRequestID forwards the gateway request ID so request logs and error
// bodies carry the same ID the gateway reports.
func withRequestID(ev events.APIGatewayProxyRequest) events.APIGatewayProxyRequest {
	id := ev.RequestContext.RequestID
	if id == "" {
		return ev
	}
	for k := range ev.Headers {
		if http.CanonicalHeaderKey(k) == "X-Request-Id" {
			return ev
		}
	}
	for k := range ev.MultiValueHeaders {
		if http.CanonicalHeaderKey(k) == "X-Request-Id" {
			return ev
		}
	}

	headers := make(map[string]string, len(ev.Headers)+1)
	for k, v := range ev.Headers {
		headers[k] = v
	}
	headers["X-Request-Id"] = id
	ev.Headers = headers

	if ev.MultiValueHeaders != nil {
		multi := make(map[string][]string, len(ev.MultiValueHeaders)+1)
		for k, v := range ev.MultiValueHeaders {
			multi[k] = v
		}
		multi["X-Request-Id"] = []string{id}
		ev.MultiValueHeaders = multi
	}
	return ev
}

func errorResponse(status int, code, message string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       `{"error":"` + code + `","message":"` + message + `"}`,
	}
}
