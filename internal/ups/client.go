package ups

import (
	"context"
	"net/url"
	"strings"

	"github.com/dvcrn/ups-proxy/internal/httpclient"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultRatingVersion is the Rating API version used when none is given.
	DefaultRatingVersion = "v2409"
	// DefaultTransactionSource identifies this client to UPS.
	DefaultTransactionSource = "ups-proxy"

	transIDHeader        = "transId"
	transactionSrcHeader = "transactionSrc"
	maxTransIDLength     = 32
)

// Doer sends an authenticated request. *auth.Coordinator satisfies it.
type Doer interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

type ClientConfig struct {
	APIBaseURL        string
	TransactionSource string
	AccountNumber     string
	RatingVersion     string
}

// Client is the shared plumbing for the carrier services: URL building, the
// per-request UPS headers and the authenticated transport.
type Client struct {
	doer          Doer
	baseURL       string
	transSrc      string
	accountNumber string
	ratingVersion string
	logger        zerolog.Logger
	newTransID    func() string
}

func NewClient(doer Doer, cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.TransactionSource == "" {
		cfg.TransactionSource = DefaultTransactionSource
	}
	if cfg.RatingVersion == "" {
		cfg.RatingVersion = DefaultRatingVersion
	}
	return &Client{
		doer:          doer,
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/"),
		transSrc:      cfg.TransactionSource,
		accountNumber: cfg.AccountNumber,
		ratingVersion: cfg.RatingVersion,
		logger:        logger,
		newTransID:    newTransID,
	}
}

// newTransID returns a random identifier within the 32 character limit UPS
// places on transId.
func newTransID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(id) > maxTransIDLength {
		id = id[:maxTransIDLength]
	}
	return id
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// postJSON sends body to rawURL with the UPS transaction headers. The response
// is returned whatever its status; callers decide how to map failures.
func (c *Client) postJSON(ctx context.Context, rawURL string, body any) (*httpclient.Response, error) {
	req, err := httpclient.NewJSONRequest("POST", rawURL, body)
	if err != nil {
		return nil, err
	}
	transID := c.newTransID()
	req.Header.Set(transIDHeader, transID)
	req.Header.Set(transactionSrcHeader, c.transSrc)

	c.logger.Debug().
		Str("url", rawURL).
		Str("trans_id", transID).
		Int("body_bytes", len(req.Body)).
		Msg("Sending UPS request")

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("trans_id", transID).
		Int("status_code", resp.StatusCode).
		Msg("UPS response received")
	return resp, nil
}
