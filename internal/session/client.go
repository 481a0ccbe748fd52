package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/playperu/harvest/internal/harvest"
)

// APIError is a rejection returned by the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the game server's player endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL. A nil hc uses
// http.DefaultClient.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// EventsURL is the WebSocket address of the event stream.
func (c *Client) EventsURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/game/ws"
}

func (c *Client) State(ctx context.Context) (*harvest.GameState, error) {
	var gs harvest.GameState
	if err := c.do(ctx, http.MethodGet, "/api/game/state", nil, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

func (c *Client) Scenarios(ctx context.Context) (harvest.Catalog, error) {
	var catalog harvest.Catalog
	if err := c.do(ctx, http.MethodGet, "/api/scenarios", nil, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *Client) Claim(ctx context.Context, team harvest.TeamID, clientID, name, crop string) (*harvest.GameState, error) {
	body := struct {
		ClientID string `json:"clientId"`
		Name     string `json:"name"`
		Crop     string `json:"crop"`
	}{clientID, name, crop}
	return c.post(ctx, "/api/teams/"+string(team)+"/claim", body)
}

func (c *Client) Answer(ctx context.Context, team harvest.TeamID, scenarioIndex int, choiceID string) (*harvest.GameState, error) {
	body := struct {
		ScenarioIndex int    `json:"scenarioIndex"`
		ChoiceID      string `json:"choiceId"`
	}{scenarioIndex, choiceID}
	return c.post(ctx, "/api/teams/"+string(team)+"/answer", body)
}

func (c *Client) TimePenalty(ctx context.Context, team harvest.TeamID, scenarioIndex int) (*harvest.GameState, error) {
	body := struct {
		ScenarioIndex int `json:"scenarioIndex"`
	}{scenarioIndex}
	return c.post(ctx, "/api/teams/"+string(team)+"/penalty", body)
}

func (c *Client) post(ctx context.Context, path string, body any) (*harvest.GameState, error) {
	var gs harvest.GameState
	if err := c.do(ctx, http.MethodPost, path, body, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
