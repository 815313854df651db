package sandboxapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
)

// rateQuotaMarker appears in response bodies when the server throttles.
const rateQuotaMarker = "rate quota"

// Credentials authenticate against the login endpoint.
type Credentials struct {
	Username string
	Password string
	Domain   string
}

// RESTConfig configures a RESTClient.
type RESTConfig struct {
	Server     string
	Port       int
	APIVersion string
	Timeout    time.Duration
	Credentials
}

// RESTClient talks to the sandbox REST API.
type RESTClient struct {
	loginURL string
	baseURL  string
	creds    Credentials
	http     *http.Client
	token    string
}

// NewRESTClient creates a client. Call Login before any other request.
func NewRESTClient(cfg RESTConfig) *RESTClient {
	version := cfg.APIVersion
	if version == "" {
		version = "v2"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	root := fmt.Sprintf("http://%s:%d/api", cfg.Server, cfg.Port)
	return &RESTClient{
		loginURL: root + "/login",
		baseURL:  root + "/" + version,
		creds:    cfg.Credentials,
		http:     &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for a session token.
func (c *RESTClient) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": c.creds.Username,
		"password": c.creds.Password,
		"domain":   c.creds.Domain,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return errors.Transport("login", err)
	}
	req.Header.Set("Content-Type", "application/json")

	data, err := c.send(req, "login")
	if err != nil {
		return err
	}
	token := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if token == "" {
		return errors.Transport("login", fmt.Errorf("empty token"))
	}
	c.token = token
	return nil
}

// StartBlueprint launches one sandbox.
func (c *RESTClient) StartBlueprint(ctx context.Context, r StartRequest) (*Sandbox, error) {
	params := r.Params
	if params == nil {
		params = []Param{}
	}
	payload := map[string]any{
		"name":     r.Name,
		"duration": cohort.ISODuration(r.DurationMinutes),
		"params":   params,
	}
	var sb Sandbox
	path := "/blueprints/" + url.PathEscape(r.BlueprintID) + "/start"
	if err := c.do(ctx, http.MethodPost, path, payload, &sb, "start blueprint"); err != nil {
		return nil, err
	}
	if sb.ID == "" {
		return nil, errors.Transport("start blueprint", fmt.Errorf("response has no sandbox id"))
	}
	return &sb, nil
}

// GetSandbox returns the current sandbox details.
func (c *RESTClient) GetSandbox(ctx context.Context, id string) (*Sandbox, error) {
	var sb Sandbox
	if err := c.do(ctx, http.MethodGet, "/sandboxes/"+url.PathEscape(id), nil, &sb, "get sandbox"); err != nil {
		return nil, err
	}
	return &sb, nil
}

// StopSandbox requests teardown of a sandbox.
func (c *RESTClient) StopSandbox(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/sandboxes/"+url.PathEscape(id)+"/stop", nil, nil, "stop sandbox")
}

// GetActivity returns activity feed events for a sandbox.
func (c *RESTClient) GetActivity(ctx context.Context, id string, q ActivityQuery) ([]cohort.Event, error) {
	v := url.Values{}
	v.Set("error_only", strconv.FormatBool(q.ErrorOnly))
	if q.FromEventID > 0 {
		v.Set("from_event_id", strconv.Itoa(q.FromEventID))
	}
	path := "/sandboxes/" + url.PathEscape(id) + "/activity?" + v.Encode()

	var resp struct {
		Events []cohort.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, "get activity"); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, in, out any, op string) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Transport(op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Transport(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.token)

	data, err := c.send(req, op)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Transport(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *RESTClient) send(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Transport(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Transport(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := fmt.Sprintf("code %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		if resp.StatusCode == http.StatusTooManyRequests || strings.Contains(strings.ToLower(string(data)), rateQuotaMarker) {
			return nil, errors.RateLimited(op, detail)
		}
		return nil, errors.Transport(op, fmt.Errorf("%s", detail))
	}
	return data, nil
}
