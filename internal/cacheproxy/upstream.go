package cacheproxy

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AgentUpstream fetches over the network using fiber's HTTP agent.
type AgentUpstream struct{}

func NewAgentUpstream() *AgentUpstream {
	return &AgentUpstream{}
}

func (u *AgentUpstream) Do(ctx context.Context, req *Request) (*Response, error) {
	agent := fiber.AcquireAgent()
	defer fiber.ReleaseAgent(agent)

	request := agent.Request()
	method := req.Method
	if method == "" {
		method = fiber.MethodGet
	}
	request.Header.SetMethod(method)
	request.SetRequestURI(req.URL)
	for key, values := range req.Header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, context.DeadlineExceeded
		}
		agent.Timeout(remaining)
	}

	if err := agent.Parse(); err != nil {
		return nil, err
	}

	response := fiber.AcquireResponse()
	defer fiber.ReleaseResponse(response)
	agent.SetResponse(response)

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	header := make(map[string][]string)
	response.Header.VisitAll(func(key, value []byte) {
		k := string(key)
		header[k] = append(header[k], string(value))
	})

	// Copy: body is pooled with the agent.
	bodyCopy := make([]byte, len(body))
	copy(bodyCopy, body)

	return &Response{Status: status, Header: header, Body: bodyCopy}, nil
}
