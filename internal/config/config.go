package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Intercom struct {
		AccessToken string `envconfig:"ACCESS_TOKEN" required:"true"`
		BaseUrl     string `envconfig:"BASE_URL" default:"https://api.intercom.io"`
		ApiVersion  string `envconfig:"API_VERSION" default:"2.11"`
		PerPage     int    `envconfig:"PER_PAGE" default:"50"`
	} `envconfig:"INTERCOM"`
	HubSpot struct {
		AccessToken        string        `envconfig:"ACCESS_TOKEN" required:"true"`
		BaseUrl            string        `envconfig:"BASE_URL" default:"https://api.hubapi.com"`
		ExternalIdProperty string        `envconfig:"EXTERNAL_ID_PROPERTY" default:"intercom_id"`
		SearchRetries      uint64        `envconfig:"SEARCH_RETRIES" default:"3"`
		SearchBackoff      time.Duration `envconfig:"SEARCH_BACKOFF" default:"500ms"`
	} `envconfig:"HUBSPOT"`
	Sync struct { // Intercom-HubSpot-Sync
		HttpTimeout    time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
		PushgatewayUrl string        `envconfig:"PUSHGATEWAY_URL"`
	} `envconfig:"IHS"`
}

// OAuthConfig only carries what the token helper needs, so it can run before
// any access token exists.
type OAuthConfig struct {
	Intercom struct {
		ClientId     string `envconfig:"CLIENT_ID" required:"true"`
		ClientSecret string `envconfig:"CLIENT_SECRET" required:"true"`
		RedirectUri  string `envconfig:"REDIRECT_URI" required:"true"`
	} `envconfig:"INTERCOM"`
	HubSpot struct {
		ClientId     string `envconfig:"CLIENT_ID" required:"true"`
		ClientSecret string `envconfig:"CLIENT_SECRET" required:"true"`
		RedirectUri  string `envconfig:"REDIRECT_URI" required:"true"`
	} `envconfig:"HUBSPOT"`
}

// Empty so variables read as INTERCOM_ACCESS_TOKEN, HUBSPOT_ACCESS_TOKEN etc.
const APP_CONF_PREFIX = ""

const DOTENV_FILE = ".env"

func LoadConfig() (Config, error) {
	loadDotEnv()

	var conf Config
	err := envconfig.Process(APP_CONF_PREFIX, &conf)
	if err != nil {
		return conf, err
	}

	return conf, conf.Validate()
}

// Validate catches tokens that are set but empty, which envconfig accepts.
func (c Config) Validate() error {
	if c.Intercom.AccessToken == "" || c.HubSpot.AccessToken == "" {
		return errors.New("INTERCOM_ACCESS_TOKEN and HUBSPOT_ACCESS_TOKEN must be set")
	}
	return nil
}

func LoadOAuthConfig() (OAuthConfig, error) {
	loadDotEnv()

	var conf OAuthConfig
	err := envconfig.Process(APP_CONF_PREFIX, &conf)

	return conf, err
}

// loadDotEnv never overrides variables that are already set. A missing file is fine.
func loadDotEnv() {
	_ = godotenv.Load(DOTENV_FILE)
}
