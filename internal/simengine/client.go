package simengine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Engine is the external football simulation, consumed as a black box. Match
// state blobs are opaque to this service; they are stored and echoed back,
// never interpreted.
type Engine interface {
	InitiateGame(ctx context.Context, team1, team2, pitchConfig json.RawMessage) (json.RawMessage, error)
	PlayIteration(ctx context.Context, state json.RawMessage) (json.RawMessage, error)
	StartSecondHalf(ctx context.Context, state json.RawMessage) (json.RawMessage, error)
}

// Client talks to the simulation engine over HTTP with JSON bodies.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type initiateRequest struct {
	Team1       json.RawMessage `json:"team1"`
	Team2       json.RawMessage `json:"team2"`
	PitchConfig json.RawMessage `json:"pitchConfig,omitempty"`
}

type stateRequest struct {
	MatchState json.RawMessage `json:"matchState"`
}

type stateResponse struct {
	MatchState json.RawMessage `json:"matchState"`
}

func (c *Client) InitiateGame(ctx context.Context, team1, team2, pitchConfig json.RawMessage) (json.RawMessage, error) {
	var resp stateResponse
	req := initiateRequest{Team1: team1, Team2: team2, PitchConfig: pitchConfig}
	if err := c.doJSON(ctx, "/initiate-game", req, &resp); err != nil {
		return nil, err
	}
	return resp.MatchState, nil
}

func (c *Client) PlayIteration(ctx context.Context, state json.RawMessage) (json.RawMessage, error) {
	var resp stateResponse
	if err := c.doJSON(ctx, "/play-iteration", stateRequest{MatchState: state}, &resp); err != nil {
		return nil, err
	}
	return resp.MatchState, nil
}

func (c *Client) StartSecondHalf(ctx context.Context, state json.RawMessage) (json.RawMessage, error) {
	var resp stateResponse
	if err := c.doJSON(ctx, "/start-second-half", stateRequest{MatchState: state}, &resp); err != nil {
		return nil, err
	}
	return resp.MatchState, nil
}

func (c *Client) doJSON(ctx context.Context, path string, in any, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req.SetBody(payload)

	timeout := c.defaultTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("engine %s: %w", path, err)
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("engine %s: status %d", path, code)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("engine %s: decode: %w", path, err)
		}
	}
	return nil
}
