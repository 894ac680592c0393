package ups

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvcrn/ups-proxy/internal/httpclient"
	"github.com/dvcrn/ups-proxy/internal/upserr"
)

// RatingService calls the UPS Rating API.
type RatingService struct {
	client *Client
}

func NewRatingService(client *Client) *RatingService {
	return &RatingService{client: client}
}

// ShopRates returns rates for every available service. An empty version
// selects the configured default.
func (s *RatingService) ShopRates(ctx context.Context, req RateRequest, version string) (*RateResponse, error) {
	return s.Rate(ctx, RateOptionShop, req, version)
}

// GetRate rates the single service named in req.Shipment.Service.
func (s *RatingService) GetRate(ctx context.Context, req RateRequest, version string) (*RateResponse, error) {
	return s.Rate(ctx, RateOptionRate, req, version)
}

// ShopRatesWithTransit is ShopRates with time-in-transit details.
func (s *RatingService) ShopRatesWithTransit(ctx context.Context, req RateRequest, version string) (*RateResponse, error) {
	return s.Rate(ctx, RateOptionShopTimeInTransit, req, version)
}

// URL builds the rating endpoint. Only the known options and versions of the
// form "v<digits>" are accepted so caller input cannot reach other paths.
func (s *RatingService) URL(option RateOption, version string) (string, error) {
	if version == "" {
		version = s.client.ratingVersion
	}
	if !ValidRatingVersion(version) {
		return "", upserr.InvalidURL(fmt.Sprintf("invalid rating version %q, expected v followed by digits", version))
	}
	if _, ok := ParseRateOption(string(option)); !ok {
		return "", upserr.InvalidURL(fmt.Sprintf("invalid rating option %q", option))
	}
	return s.client.endpoint("/api/rating/"+version+"/"+string(option), nil), nil
}

// ValidRatingVersion reports whether v looks like "v2409".
func ValidRatingVersion(v string) bool {
	if len(v) < 2 || v[0] != 'v' {
		return false
	}
	for _, r := range v[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Rate posts req to /api/rating/{version}/{option}.
func (s *RatingService) Rate(ctx context.Context, option RateOption, req RateRequest, version string) (*RateResponse, error) {
	u, err := s.URL(option, version)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.postJSON(ctx, u, rateRequestEnvelope{RateRequest: req})
	if err != nil {
		return nil, err
	}

	rated, err := parseRateResponse(resp)
	if err != nil {
		s.client.logger.Warn().
			Err(err).
			Str("option", string(option)).
			Int("status_code", resp.StatusCode).
			Msg("Rating request failed")
		return nil, err
	}

	s.client.logger.Info().
		Str("option", string(option)).
		Int("services", len(rated.RatedShipment)).
		Msg("Rates received")
	return rated, nil
}

// parseRateResponse decodes a rating answer. Carrier error envelopes are
// checked for the documented rating codes on client errors and on 2xx bodies
// that do not decode; everything else maps by status.
func parseRateResponse(resp *httpclient.Response) (*RateResponse, error) {
	if !resp.IsSuccess() {
		if isRatingClientError(resp.StatusCode) {
			if err := ratingErrorFromBody(resp.Body); err != nil {
				return nil, err
			}
		}
		return nil, upserr.FromStatus(resp.StatusCode, resp.Header, resp.Body)
	}

	var env rateResponseEnvelope
	err := resp.DecodeJSON(&env)
	if err == nil && env.RateResponse == nil {
		err = fmt.Errorf("response has no RateResponse")
	}
	if err != nil {
		if ratingErr := ratingErrorFromBody(resp.Body); ratingErr != nil {
			return nil, ratingErr
		}
		return nil, upserr.Decoding(err, resp.Body)
	}
	return env.RateResponse, nil
}

func isRatingClientError(status int) bool {
	return status >= 400 && status <= 499 &&
		status != http.StatusUnauthorized &&
		status != http.StatusTooManyRequests
}

// ratingErrorFromBody maps the first provider error to the rating-specific
// outcome. It returns nil when body is not an error envelope.
func ratingErrorFromBody(body []byte) *upserr.Error {
	errs, ok := upserr.ParseProviderErrors(body)
	if !ok {
		return nil
	}
	for _, e := range errs {
		if e.Code == "" || e.Message == "" {
			continue
		}
		switch e.Code {
		case "120001":
			return upserr.InvalidResponse("Invalid ship to address: " + e.Message)
		case "120002":
			return upserr.InvalidResponse("Invalid ship from address: " + e.Message)
		case "111057":
			return upserr.InvalidResponse("Invalid package dimensions: " + e.Message)
		case "111058":
			return upserr.InvalidResponse("Invalid package weight: " + e.Message)
		case "111500":
			return upserr.ServiceUnavailable()
		default:
			return upserr.InvalidResponse(e.Code + ": " + e.Message)
		}
	}
	return nil
}

// QuickShipment is the minimum needed to shop rates between two postal codes.
type QuickShipment struct {
	FromZip     string  `json:"fromZip"`
	FromState   string  `json:"fromState"`
	FromCountry string  `json:"fromCountry,omitempty"`
	ToZip       string  `json:"toZip"`
	ToState     string  `json:"toState"`
	ToCountry   string  `json:"toCountry,omitempty"`
	WeightLbs   float64 `json:"weightLbs"`
	Length      float64 `json:"length"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Residential bool    `json:"residential,omitempty"`
}

// QuickShop builds a shop request for a single customer-supplied package
// billed to the configured account and returns all available rates.
func (s *RatingService) QuickShop(ctx context.Context, q QuickShipment) (*RateResponse, error) {
	return s.ShopRates(ctx, s.QuickShopRequest(q), "")
}

func (s *RatingService) QuickShopRequest(q QuickShipment) RateRequest {
	if q.FromCountry == "" {
		q.FromCountry = "US"
	}
	if q.ToCountry == "" {
		q.ToCountry = "US"
	}
	account := s.client.accountNumber

	origin := AddressInfo{
		AddressLine:       []string{"123 Main St"},
		City:              "City",
		StateProvinceCode: q.FromState,
		PostalCode:        q.FromZip,
		CountryCode:       q.FromCountry,
	}
	dest := AddressInfo{
		AddressLine:       []string{"456 Oak Ave"},
		City:              "City",
		StateProvinceCode: q.ToState,
		PostalCode:        q.ToZip,
		CountryCode:       q.ToCountry,
	}
	if q.Residential {
		dest.ResidentialAddressIndicator = "Y"
	}

	return RateRequest{
		Request: RateRequestInfo{
			SubVersion:           strings.TrimPrefix(s.client.ratingVersion, "v"),
			TransactionReference: &TransactionReference{CustomerContext: "Quick Shop Request"},
		},
		Shipment: RateShipment{
			Shipper:  RateAddress{Name: "Shipper", ShipperNumber: account, Address: origin},
			ShipTo:   RateAddress{Name: "Customer", Address: dest},
			ShipFrom: RateAddress{Name: "Shipper", ShipperNumber: account, Address: origin},
			PaymentDetails: &PaymentDetails{ShipmentCharge: []ShipmentCharge{{
				Type:        "01",
				BillShipper: &BillShipper{AccountNumber: account},
			}}},
			NumOfPieces: "1",
			Package: RatePackage{
				PackagingType: CodeDescription{Code: "02", Description: "Customer Supplied Package"},
				Dimensions: &Dimensions{
					UnitOfMeasurement: CodeDescription{Code: "IN", Description: "Inches"},
					Length:            oneDecimal(q.Length),
					Width:             oneDecimal(q.Width),
					Height:            oneDecimal(q.Height),
				},
				PackageWeight: PackageWeight{
					UnitOfMeasurement: CodeDescription{Code: "LBS", Description: "Pounds"},
					Weight:            oneDecimal(q.WeightLbs),
				},
			},
		},
	}
}

func oneDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
