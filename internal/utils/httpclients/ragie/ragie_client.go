// Package ragie provisions Ragie document connectors so a user's Google
// Drive can be indexed for retrieval.
package ragie

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"resty.dev/v3"

	"github.com/DphenomenalALU/tresor-backend/internal/utils/apperrors"
)

const (
	sourceGoogleDrive = "google_drive"
	partitionMode     = "hi_res"
	callbackPath      = "/ragie-callback"
)

// Client wraps the Ragie connections API.
type Client struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	appURL  string
}

func NewClient(client *resty.Client, baseURL, apiKey, appURL string) *Client {
	return &Client{
		client:  client,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		appURL:  strings.TrimRight(strings.TrimSpace(appURL), "/"),
	}
}

type oauthRequest struct {
	SourceType  string            `json:"source_type"`
	RedirectURI string            `json:"redirect_uri"`
	Metadata    map[string]string `json:"metadata"`
	Mode        string            `json:"mode"`
}

// CreateDriveConnection asks Ragie for a Google Drive OAuth connection
// tied to the given user and returns the upstream response body verbatim.
// The user completes consent at the embedded URL and lands back on the
// app's callback route.
func (c *Client) CreateDriveConnection(ctx context.Context, userID string) (json.RawMessage, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, apperrors.New(apperrors.TypeExternal, "ragie api key is not configured")
	}

	body := oauthRequest{
		SourceType:  sourceGoogleDrive,
		RedirectURI: c.appURL + callbackPath,
		Metadata:    map[string]string{"user_id": userID},
		Mode:        partitionMode,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.apiKey)).
		SetBody(body).
		Post(c.baseURL + "/connections/oauth")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeExternal, "ragie connection request", err)
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(resp)
	}
	return json.RawMessage(resp.Bytes()), nil
}

// ConnectionURL extracts the OAuth URL from a connection response body.
func ConnectionURL(body json.RawMessage) string {
	var parsed struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return parsed.URL
}

func (c *Client) errorFromResponse(resp *resty.Response) error {
	message := "ragie connection request failed"
	if trimmed := strings.TrimSpace(resp.String()); trimmed != "" {
		return apperrors.New(apperrors.TypeExternal, fmt.Sprintf("%s: %s", message, trimmed))
	}
	return apperrors.New(apperrors.TypeExternal, message)
}
