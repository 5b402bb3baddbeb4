package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blockvista/gateway/pkg/utils"
)

// Credentials holds basic-auth credentials for a node endpoint.
// Secondary endpoints reuse the primary's credentials.
type Credentials struct {
	User string
	Pass string
}

// Client issues JSON-RPC calls against a single node endpoint. Failover
// and breaker bookkeeping live in Router; the client only knows how to
// talk to its one endpoint.
type Client struct {
	endpoint string
	creds    *Credentials
	client   *http.Client
}

// ClientOpts configures a Client.
type ClientOpts struct {
	Endpoint    string
	Credentials *Credentials
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// NewClient creates a client for one endpoint.
func NewClient(o ClientOpts) *Client {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	return &Client{
		endpoint: strings.TrimRight(o.Endpoint, "/"),
		creds:    o.Credentials,
		client:   client,
	}
}

// Endpoint returns the endpoint URL this client targets.
func (c *Client) Endpoint() string { return c.endpoint }

// Call issues one RPC method call and unwraps the envelope. A non-nil
// envelope error is returned as *NodeError; transport, HTTP and decode
// problems come back as plain errors and are candidates for failover.
func (c *Client) Call(ctx context.Context, method string, params []any, out any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(nodeRequest{JSONRPC: "1.0", ID: "gateway", Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.creds != nil {
		req.SetBasicAuth(c.creds.User, c.creds.Pass)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}

	var env nodeResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if cerr := utils.DrainAndClose(resp.Body); cerr != nil && decodeErr == nil {
		decodeErr = cerr
	}

	// Nodes answer envelope errors with non-2xx statuses, so the envelope
	// wins over the status code when it decodes.
	if decodeErr != nil {
		if resp.StatusCode >= 300 {
			return fmt.Errorf("http %d", resp.StatusCode)
		}
		return decodeErr
	}
	if env.Error != nil {
		return env.Error
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return err
		}
	}
	return nil
}
