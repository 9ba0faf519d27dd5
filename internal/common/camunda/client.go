package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"internship-intake/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	MaxRetries             int
	BaseDelay              time.Duration
	MaxDelay               time.Duration
}

func DefaultClientConfig(address string) *ClientConfig {
	return &ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		MaxRetries:             3,
		BaseDelay:              time.Second,
		MaxDelay:               10 * time.Second,
	}
}

// NewClient connects to the gateway and checks the topology, retrying
// connection-level failures with exponential backoff.
func NewClient(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: cfg}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if lastErr = c.HealthCheck(ctx); lastErr == nil {
			return c, nil
		}
		if !isRetryableZeebeError(lastErr) || attempt == cfg.MaxRetries {
			break
		}

		delay := cfg.BaseDelay * time.Duration(1<<attempt)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			zeebeClient.Close()
			return nil, ctx.Err()
		}
	}

	zeebeClient.Close()
	return nil, errors.NewExternalServiceError("zeebe",
		fmt.Errorf("broker at %s unreachable: %w", cfg.GatewayAddress, lastErr))
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// StartProcess creates an instance of the latest version of bpmnProcessID
// with vars as its variables and returns the instance key.
func (c *Client) StartProcess(ctx context.Context, bpmnProcessID string, vars interface{}) (int64, error) {
	cmd, err := c.client.NewCreateInstanceCommand().
		BPMNProcessId(bpmnProcessID).
		LatestVersion().
		VariablesFromObject(vars)
	if err != nil {
		return 0, fmt.Errorf("failed to encode process variables: %w", err)
	}
	resp, err := cmd.Send(ctx)
	if err != nil {
		return 0, errors.NewExternalServiceError("zeebe", err)
	}
	return resp.GetProcessInstanceKey(), nil
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
