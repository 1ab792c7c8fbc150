package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/wonny/lossmodel/internal/api/handlers"
	"github.com/wonny/lossmodel/internal/risk"
	"github.com/wonny/lossmodel/internal/store"
	"github.com/wonny/lossmodel/pkg/httputil"
)

// Client 원격 lossmodel API 클라이언트 (CLI --api 모드)
type Client struct {
	baseURL string
	http    *httputil.Client
}

// NewClient creates a client for the API at baseURL
func NewClient(baseURL string, httpClient *httputil.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// APIError 2xx 이외 응답
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Unwrap maps well-known statuses back to domain errors
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return risk.ErrInvalidParameter
	case http.StatusNotFound:
		return store.ErrRunNotFound
	default:
		return nil
	}
}

// CreateSimulation runs a simulation on the server
func (c *Client) CreateSimulation(ctx context.Context, req handlers.SimulationRequest) (*handlers.SimulationResponse, error) {
	resp, err := c.http.PostJSON(ctx, c.baseURL+"/api/simulations", req)
	if err != nil {
		return nil, err
	}

	var out handlers.SimulationResponse
	if err := decodeResponse(resp, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EvaluateMetrics computes metrics of a sample on the server
func (c *Client) EvaluateMetrics(ctx context.Context, req handlers.MetricsRequest) (*handlers.MetricsResponse, error) {
	resp, err := c.http.PostJSON(ctx, c.baseURL+"/api/metrics", req)
	if err != nil {
		return nil, err
	}

	var out handlers.MetricsResponse
	if err := decodeResponse(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRuns returns the most recent stored runs
func (c *Client) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	u := c.baseURL + "/api/simulations"
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}

	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, err
	}

	var out handlers.RunList
	if err := decodeResponse(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Runs, nil
}

// GetRun returns one stored run
func (c *Client) GetRun(ctx context.Context, id string) (*store.Run, error) {
	resp, err := c.http.Get(ctx, c.baseURL+"/api/simulations/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var out store.Run
	if err := decodeResponse(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeResponse(resp *http.Response, want int, dest interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var body handlers.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
			body.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: body.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
