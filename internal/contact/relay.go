package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultEndpoint is the Web3Forms submit URL.
const DefaultEndpoint = "https://api.web3forms.com/submit"

const maxRelayResponseBytes = 64 * 1024

// RelayClient posts submissions to a third-party form relay.
type RelayClient struct {
	endpoint  string
	accessKey string
	fromName  string
	client    *http.Client
}

// NewRelayClient builds a relay client. A nil client means
// http.DefaultClient.
func NewRelayClient(endpoint, accessKey, fromName string, client *http.Client) *RelayClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if fromName == "" {
		fromName = "Portfolio Contact Form"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &RelayClient{endpoint: endpoint, accessKey: accessKey, fromName: fromName, client: client}
}

type relayRequest struct {
	AccessKey string `json:"access_key"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Subject   string `json:"subject"`
	FromName  string `json:"from_name"`
}

type relayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Send implements Sender with a single POST.
func (c *RelayClient) Send(ctx context.Context, msg Message) error {
	if c.accessKey == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(relayRequest{
		AccessKey: c.accessKey,
		Name:      msg.Name,
		Email:     msg.Email,
		Message:   msg.Message,
		Subject:   msg.SubjectOrDefault(),
		FromName:  c.fromName,
	})
	if err != nil {
		return fmt.Errorf("encode relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to relay: %w", err)
	}
	defer resp.Body.Close()

	var out relayResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRelayResponseBytes)).Decode(&out); err != nil {
		return fmt.Errorf("%w: status %d, unreadable body: %v", ErrRejected, resp.StatusCode, err)
	}
	if !out.Success {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, out.Message)
	}
	return nil
}
