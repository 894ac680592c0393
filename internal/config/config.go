package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvcrn/ups-proxy/internal/credentials"
	"github.com/dvcrn/ups-proxy/internal/httpclient"
	"github.com/dvcrn/ups-proxy/internal/ups"
	"github.com/dvcrn/ups-proxy/internal/upserr"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. UPS_CLIENT_ID.
const EnvPrefix = "UPS"

const (
	DefaultBaseURL           = "https://wwwcie.ups.com"
	DefaultRatingVersion     = "v2409"
	DefaultTransactionSource = "ups-proxy"
	DefaultPort              = "9879"

	placeholder = "<FILL-ME>"
)

// Viper keys.
const (
	KeyClientID              = "client_id"
	KeyClientSecret          = "client_secret"
	KeyMerchantID            = "merchant_id"
	KeyAccountNumber         = "account_number"
	KeyOAuthBaseURL          = "oauth_base_url"
	KeyAPIBaseURL            = "api_base_url"
	KeyTransactionSource     = "transaction_src"
	KeyRatingVersion         = "rating_version"
	KeyMaxRetries            = "retry.max_retries"
	KeyBaseDelay             = "retry.base_delay"
	KeyMaxDelay              = "retry.max_delay"
	KeyRetryableStatusCodes  = "retry.retryable_status_codes"
	KeyTokenRefreshThreshold = "token_refresh_threshold"
	KeyRequestTimeout        = "request_timeout"
	KeyPort                  = "port"
	KeyAdminAPIKey           = "admin_api_key"
	KeyCredentialsFile       = "credentials_file"
)

type RetrySettings struct {
	MaxRetries           int
	BaseDelay            time.Duration
	MaxDelay             time.Duration
	RetryableStatusCodes []int
}

type Config struct {
	ClientID      string
	ClientSecret  string
	MerchantID    string
	AccountNumber string

	OAuthBaseURL      string
	APIBaseURL        string
	TransactionSource string
	RatingVersion     string

	Retry                 RetrySettings
	TokenRefreshThreshold time.Duration
	RequestTimeout        time.Duration

	Port            string
	AdminAPIKey     string
	CredentialsFile string
}

// SetDefaults registers defaults and environment binding on v. Every key gets
// a default so AutomaticEnv can resolve it.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyClientID, "")
	v.SetDefault(KeyClientSecret, "")
	v.SetDefault(KeyMerchantID, "")
	v.SetDefault(KeyAccountNumber, "")
	v.SetDefault(KeyOAuthBaseURL, DefaultBaseURL)
	v.SetDefault(KeyAPIBaseURL, DefaultBaseURL)
	v.SetDefault(KeyTransactionSource, DefaultTransactionSource)
	v.SetDefault(KeyRatingVersion, DefaultRatingVersion)
	v.SetDefault(KeyMaxRetries, 3)
	v.SetDefault(KeyBaseDelay, time.Second)
	v.SetDefault(KeyMaxDelay, 60*time.Second)
	v.SetDefault(KeyRetryableStatusCodes, httpclient.DefaultRetryableStatusCodes)
	v.SetDefault(KeyTokenRefreshThreshold, 60*time.Second)
	v.SetDefault(KeyRequestTimeout, 60*time.Second)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyAdminAPIKey, "")
	v.SetDefault(KeyCredentialsFile, credentials.DefaultCredsPath())
}

// Load reads a Config from v. It does not validate; call Validate before
// using the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	if file := v.ConfigFileUsed(); file != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, upserr.Configuration("failed to read config file %s: %v", file, err)
		}
	}

	codes, err := intSlice(v.Get(KeyRetryableStatusCodes))
	if err != nil {
		return nil, upserr.Configuration("invalid %s: %v", KeyRetryableStatusCodes, err)
	}

	cfg := &Config{
		ClientID:          strings.TrimSpace(v.GetString(KeyClientID)),
		ClientSecret:      strings.TrimSpace(v.GetString(KeyClientSecret)),
		MerchantID:        optional(v.GetString(KeyMerchantID)),
		AccountNumber:     optional(v.GetString(KeyAccountNumber)),
		OAuthBaseURL:      strings.TrimSpace(v.GetString(KeyOAuthBaseURL)),
		APIBaseURL:        strings.TrimSpace(v.GetString(KeyAPIBaseURL)),
		TransactionSource: v.GetString(KeyTransactionSource),
		RatingVersion:     v.GetString(KeyRatingVersion),
		Retry: RetrySettings{
			MaxRetries:           v.GetInt(KeyMaxRetries),
			BaseDelay:            v.GetDuration(KeyBaseDelay),
			MaxDelay:             v.GetDuration(KeyMaxDelay),
			RetryableStatusCodes: codes,
		},
		TokenRefreshThreshold: v.GetDuration(KeyTokenRefreshThreshold),
		RequestTimeout:        v.GetDuration(KeyRequestTimeout),
		Port:                  v.GetString(KeyPort),
		AdminAPIKey:           v.GetString(KeyAdminAPIKey),
		CredentialsFile:       v.GetString(KeyCredentialsFile),
	}
	return cfg, nil
}

// ApplyCredentials overrides the client credentials with values from a
// credentials source. Empty fields leave the configured value alone.
func (c *Config) ApplyCredentials(creds *credentials.ClientCredentials) {
	if creds == nil {
		return
	}
	if creds.ClientID != "" {
		c.ClientID = creds.ClientID
	}
	if creds.ClientSecret != "" {
		c.ClientSecret = creds.ClientSecret
	}
	if creds.MerchantID != "" {
		c.MerchantID = creds.MerchantID
	}
}

// HasCredentials reports whether client ID and secret are set to real values.
func (c *Config) HasCredentials() bool {
	return optional(c.ClientID) != "" && optional(c.ClientSecret) != ""
}

// Validate rejects configurations that cannot work. It runs before any
// network call.
func (c *Config) Validate() error {
	if optional(c.ClientID) == "" {
		return upserr.Configuration("UPS client ID is not configured (set %s_CLIENT_ID or run `ups-proxy init`)", EnvPrefix)
	}
	if optional(c.ClientSecret) == "" {
		return upserr.Configuration("UPS client secret is not configured (set %s_CLIENT_SECRET or run `ups-proxy init`)", EnvPrefix)
	}
	if err := validateBaseURL("OAuth base URL", c.OAuthBaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("API base URL", c.APIBaseURL); err != nil {
		return err
	}
	if c.RatingVersion != "" && !ups.ValidRatingVersion(c.RatingVersion) {
		return upserr.Configuration("rating version %q must look like v2409", c.RatingVersion)
	}
	if c.Retry.MaxRetries < 0 {
		return upserr.Configuration("max retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.BaseDelay < 0 {
		return upserr.Configuration("base delay must not be negative, got %s", c.Retry.BaseDelay)
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return upserr.Configuration("max delay %s is shorter than base delay %s", c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	if c.TokenRefreshThreshold < 0 {
		return upserr.Configuration("token refresh threshold must not be negative, got %s", c.TokenRefreshThreshold)
	}
	return nil
}

// RetryPolicy builds the executor policy from the retry settings.
func (c *Config) RetryPolicy() httpclient.RetryPolicy {
	return httpclient.NewRetryPolicy(c.Retry.MaxRetries, c.Retry.BaseDelay, c.Retry.MaxDelay, c.Retry.RetryableStatusCodes...)
}

func validateBaseURL(name, raw string) error {
	if raw == "" {
		return upserr.Configuration("%s is empty", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return upserr.Configuration("%s %q is not an absolute URL", name, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return upserr.Configuration("%s %q must use http or https", name, raw)
	}
	return nil
}

func optional(s string) string {
	s = strings.TrimSpace(s)
	if s == placeholder {
		return ""
	}
	return s
}

// intSlice accepts a list or a comma separated string such as "429,503".
func intSlice(raw any) ([]int, error) {
	s, ok := raw.(string)
	if !ok {
		return cast.ToIntSliceE(raw)
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not a status code", part)
		}
		out = append(out, n)
	}
	return out, nil
}
