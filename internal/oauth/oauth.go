package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joomcode/errorx"
	"go.dfds.cloud/intercom-hubspot-sync/internal/config"
	"go.dfds.cloud/intercom-hubspot-sync/internal/util"
)

type Platform string

const (
	PlatformIntercom Platform = "intercom"
	PlatformHubSpot  Platform = "hubspot"
)

const INTERCOM_SCOPE = "read_users write_users read_companies write_companies"
const HUBSPOT_SCOPE = "crm.objects.contacts.read crm.objects.contacts.write crm.objects.companies.read crm.objects.companies.write"

var (
	OAuthError      = errorx.NewNamespace("oauth")
	UnknownPlatform = OAuthError.NewType("unknown_platform")
	ExchangeFailed  = OAuthError.NewType("exchange_failed")
)

type Endpoints struct {
	IntercomAuthorizeUrl string
	IntercomTokenUrl     string
	HubSpotAuthorizeUrl  string
	HubSpotTokenUrl      string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		IntercomAuthorizeUrl: "https://app.intercom.com/oauth",
		IntercomTokenUrl:     "https://api.intercom.io/auth/eagle/token",
		HubSpotAuthorizeUrl:  "https://app.hubspot.com/oauth/authorize",
		HubSpotTokenUrl:      "https://api.hubapi.com/oauth/v1/token",
	}
}

// TokenResponse covers both platforms: Intercom answers with "token", HubSpot
// with "access_token" plus a refresh token.
type TokenResponse struct {
	Token        string `json:"token"`
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (t *TokenResponse) GetToken() string {
	if t.AccessToken != "" {
		return t.AccessToken
	}
	return t.Token
}

type Client struct {
	httpClient *http.Client
	config     config.OAuthConfig
	endpoints  Endpoints
}

func NewOAuthClient(conf config.OAuthConfig, endpoints Endpoints) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     conf,
		endpoints:  endpoints,
	}
}

func (c *Client) AuthUrl(platform Platform) (string, error) {
	switch platform {
	case PlatformIntercom:
		query := url.Values{}
		query.Set("client_id", c.config.Intercom.ClientId)
		query.Set("redirect_uri", c.config.Intercom.RedirectUri)
		query.Set("response_type", "code")
		query.Set("scope", INTERCOM_SCOPE)
		return fmt.Sprintf("%s?%s", c.endpoints.IntercomAuthorizeUrl, query.Encode()), nil
	case PlatformHubSpot:
		query := url.Values{}
		query.Set("client_id", c.config.HubSpot.ClientId)
		query.Set("redirect_uri", c.config.HubSpot.RedirectUri)
		query.Set("scope", HUBSPOT_SCOPE)
		return fmt.Sprintf("%s?%s", c.endpoints.HubSpotAuthorizeUrl, query.Encode()), nil
	}

	return "", UnknownPlatform.New("unknown platform %q", platform)
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, platform Platform, code string) (*TokenResponse, error) {
	form := url.Values{}
	var tokenUrl string

	switch platform {
	case PlatformIntercom:
		tokenUrl = c.endpoints.IntercomTokenUrl
		form.Set("client_id", c.config.Intercom.ClientId)
		form.Set("client_secret", c.config.Intercom.ClientSecret)
		form.Set("code", code)
	case PlatformHubSpot:
		tokenUrl = c.endpoints.HubSpotTokenUrl
		form.Set("grant_type", "authorization_code")
		form.Set("client_id", c.config.HubSpot.ClientId)
		form.Set("client_secret", c.config.HubSpot.ClientSecret)
		form.Set("redirect_uri", c.config.HubSpot.RedirectUri)
		form.Set("code", code)
	default:
		return nil, UnknownPlatform.New("unknown platform %q", platform)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", tokenUrl, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", util.USER_AGENT)

	token, err := util.DoRequest[TokenResponse](c.httpClient, req, nil)
	if err != nil {
		return nil, ExchangeFailed.Wrap(err, "%s token exchange failed", platform)
	}
	if token == nil || token.GetToken() == "" {
		return nil, ExchangeFailed.New("%s token exchange returned no token", platform)
	}

	return token, nil
}
