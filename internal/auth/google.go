package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var ErrGoogleToken = errors.New("google token rejected")

type GoogleIdentity struct {
	Email   string
	Subject string
	Name    string
}

type googleTokenInfo struct {
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Name          string `json:"name"`
}

// GoogleVerifier validates Google ID tokens against the tokeninfo endpoint.
// When a client id is configured the token audience must match it.
type GoogleVerifier struct {
	clientID string
	endpoint string
	client   *http.Client
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		endpoint: googleTokenInfoURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SetEndpoint overrides the tokeninfo endpoint. Tests point it at a local stub.
func (v *GoogleVerifier) SetEndpoint(endpoint string) {
	v.endpoint = endpoint
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (GoogleIdentity, error) {
	if idToken == "" {
		return GoogleIdentity{}, ErrGoogleToken
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		v.endpoint+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("build tokeninfo request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("call tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GoogleIdentity{}, ErrGoogleToken
	}
	var info googleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return GoogleIdentity{}, fmt.Errorf("decode tokeninfo: %w", err)
	}
	if info.Email == "" || info.EmailVerified != "true" {
		return GoogleIdentity{}, ErrGoogleToken
	}
	if v.clientID != "" && info.Aud != v.clientID {
		return GoogleIdentity{}, ErrGoogleToken
	}
	return GoogleIdentity{Email: info.Email, Subject: info.Sub, Name: info.Name}, nil
}
