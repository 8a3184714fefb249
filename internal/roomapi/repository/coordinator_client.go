package repository

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"web_chat_service/pkg/token"
)

// CoordinatorClient talks to the room coordinator service.
type CoordinatorClient interface {
	WipeRoom(ctx context.Context, roomID string) error
}

type httpCoordinatorClient struct {
	baseURL string
	client  *http.Client
}

// NewCoordinatorClient create a client for the coordinator's internal HTTP surface.
func NewCoordinatorClient(baseURL string) CoordinatorClient {
	return &httpCoordinatorClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WipeRoom tells the coordinator to drop the room's message log and
// attachment state. The coordinator authenticates the call with the same
// JWT middleware the websocket endpoint uses, so a short-lived service
// token is minted per request.
func (c *httpCoordinatorClient) WipeRoom(ctx context.Context, roomID string) error {
	serviceToken, err := token.GenerateJWT("room_api", "room_api")
	if err != nil {
		return fmt.Errorf("mint service token: %w", err)
	}

	url := fmt.Sprintf("%s/room/%s/storage?auth=%s", c.baseURL, roomID, serviceToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("build wipe request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("wipe room %s: %w", roomID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("wipe room %s: coordinator returned %d", roomID, resp.StatusCode)
	}
	return nil
}
