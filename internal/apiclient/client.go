// Package apiclient is the HTTP/WebSocket client for the hosted chat API.
// It satisfies the chat store's Backend and the wallet session's
// BalanceSource.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/walletchat/backend/internal/http/dto"
	"github.com/walletchat/backend/internal/models"
)

type Client struct {
	baseURL string
	wsURL   string
	httpc   *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL, wsURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		wsURL:   strings.TrimRight(wsURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Token returns the bearer token acquired by Connect, empty before auth.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// envelope matches dto.SuccessResponse with the payload left raw.
type envelope struct {
	OK   bool            `json:"ok"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if t := c.Token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// doEnveloped unwraps the {ok, data} wrapper used by the protected routes.
func (c *Client) doEnveloped(ctx context.Context, method, path string, body, out any) error {
	var env envelope
	if err := c.do(ctx, method, path, body, &env); err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// ProofPayload requests a fresh single-use nonce to sign.
func (c *Client) ProofPayload(ctx context.Context) (string, error) {
	var resp dto.ProofPayloadResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/proof-payload", nil, &resp); err != nil {
		return "", err
	}
	return resp.Payload, nil
}

// Connect exchanges a signed proof for a session token and stores it for
// subsequent calls.
func (c *Client) Connect(ctx context.Context, req dto.ConnectWalletRequest) (dto.AuthResponse, error) {
	var resp dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/connect", req, &resp); err != nil {
		return dto.AuthResponse{}, err
	}
	c.setToken(resp.Token)
	return resp, nil
}

// Disconnect drops the stored token.
func (c *Client) Disconnect() {
	c.setToken("")
}

// Balance implements wallet.BalanceSource over the API.
func (c *Client) Balance(ctx context.Context, address string) (string, error) {
	var resp dto.BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/wallet/balance", nil, &resp); err != nil {
		return "", err
	}
	return resp.Balance, nil
}

func (c *Client) ListChannels(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	if err := c.doEnveloped(ctx, http.MethodGet, "/api/v1/channels", nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

func (c *Client) CreateChannel(ctx context.Context, name, description string, isPrivate bool) (models.Channel, error) {
	req := dto.CreateChannelRequest{Name: name, Description: description, IsPrivate: isPrivate}
	var ch models.Channel
	if err := c.doEnveloped(ctx, http.MethodPost, "/api/v1/channels", req, &ch); err != nil {
		return models.Channel{}, err
	}
	return ch, nil
}

func (c *Client) JoinChannel(ctx context.Context, channelID string) error {
	return c.doEnveloped(ctx, http.MethodPost, "/api/v1/channels/"+channelID+"/join", nil, nil)
}

func (c *Client) LeaveChannel(ctx context.Context, channelID string) error {
	return c.doEnveloped(ctx, http.MethodPost, "/api/v1/channels/"+channelID+"/leave", nil, nil)
}

func (c *Client) ListMessages(ctx context.Context, channelID string) ([]models.Message, error) {
	var messages []models.Message
	if err := c.doEnveloped(ctx, http.MethodGet, "/api/v1/channels/"+channelID+"/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) InsertMessage(ctx context.Context, channelID, content string, encrypted bool, signature *string) (models.Message, error) {
	req := dto.SendMessageRequest{Content: content, Encrypted: encrypted, Signature: signature}
	var msg models.Message
	if err := c.doEnveloped(ctx, http.MethodPost, "/api/v1/channels/"+channelID+"/messages", req, &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (c *Client) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	if err := c.doEnveloped(ctx, http.MethodGet, "/api/v1/profiles", nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (c *Client) GetProfile(ctx context.Context, address string) (models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.doEnveloped(ctx, http.MethodGet, "/api/v1/profiles/"+address, nil, &profile); err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}

func (c *Client) UpsertProfile(ctx context.Context, displayName, avatar *string, status string) (models.UserProfile, error) {
	req := dto.UpdateProfileRequest{DisplayName: displayName, Avatar: avatar, Status: status}
	var profile models.UserProfile
	if err := c.doEnveloped(ctx, http.MethodPut, "/api/v1/profiles/me", req, &profile); err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}
