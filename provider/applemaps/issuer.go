package applemaps

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/headStarter-Travel-app/travelAppBackend/provider"
	"github.com/headStarter-Travel-app/travelAppBackend/token"
)

const (
	tokenPath = "/v1/token"

	// authTokenLifetime is the validity of the signed JWT presented to the
	// token endpoint.
	authTokenLifetime = 7 * 24 * time.Hour
)

type tokenResponse struct {
	AccessToken      string `json:"accessToken"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// Issuer is a token.Issuer that exchanges a signed maps auth token for an
// Apple Maps Server API access token.
type Issuer struct {
	teamID string
	keyID  string
	key    *ecdsa.PrivateKey
	cfg    provider.Config
	url    *url.URL
	client *http.Client
	now    func() time.Time
}

var _ token.Issuer = (*Issuer)(nil)

// NewIssuer creates an Issuer that signs with the PEM-encoded EC private key
// identified by keyID, issued to teamID.
func NewIssuer(teamID, keyID string, privateKeyPEM []byte, options ...provider.Option) (*Issuer, error) {
	if teamID == "" || keyID == "" {
		return nil, errors.New("team id and key id are required")
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("cannot parse maps private key: %w", err)
	}
	cfg, err := provider.GetOpts(DefaultBaseURL, options)
	if err != nil {
		return nil, err
	}
	u, err := cfg.ParseBaseURL()
	if err != nil {
		return nil, err
	}
	return &Issuer{
		teamID: teamID,
		keyID:  keyID,
		key:    key,
		cfg:    cfg,
		url:    u.JoinPath(tokenPath),
		client: cfg.NewHTTPClient(),
		now:    time.Now,
	}, nil
}

// AuthToken returns a newly signed ES256 maps auth token.
func (i *Issuer) AuthToken() (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Issuer:    i.teamID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(authTokenLifetime)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	t.Header["kid"] = i.keyID
	return t.SignedString(i.key)
}

// Issue exchanges a fresh auth token for an access token.
func (i *Issuer) Issue(ctx context.Context) (token.Token, error) {
	auth, err := i.AuthToken()
	if err != nil {
		return token.Token{}, fmt.Errorf("cannot sign auth token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.url.String(), nil)
	if err != nil {
		return token.Token{}, err
	}
	i.cfg.AddHeaders(req)
	req.Header.Set("Authorization", "Bearer "+auth)

	start := i.now()
	body, err := provider.Do(i.client, req)
	if err != nil {
		return token.Token{}, err
	}
	var resp tokenResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return token.Token{}, fmt.Errorf("cannot decode token response: %w", err)
	}
	if resp.AccessToken == "" {
		return token.Token{}, errors.New("token response has no access token")
	}

	tok := token.Token{Value: resp.AccessToken}
	if resp.ExpiresInSeconds > 0 {
		tok.ExpiresAt = start.Add(time.Duration(resp.ExpiresInSeconds) * time.Second)
	}
	return tok, nil
}
