package ups

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/dvcrn/ups-proxy/internal/upserr"
)

const addressValidationPath = "/api/addressvalidation/v2/"

// AddressValidator calls the UPS Address Validation (XAV) API.
type AddressValidator struct {
	client *Client
}

func NewAddressValidator(client *Client) *AddressValidator {
	return &AddressValidator{client: client}
}

// URL builds the endpoint for req, including the optional query parameters.
func (v *AddressValidator) URL(req AddressValidationRequest) (string, error) {
	if !req.RequestOption.Valid() {
		return "", upserr.InvalidURL(fmt.Sprintf("unsupported address validation request option %d", int(req.RequestOption)))
	}
	query := url.Values{}
	if req.RegionalRequestIndicator != "" {
		query.Set("regionalrequestindicator", req.RegionalRequestIndicator)
	}
	if req.MaximumCandidateListSize != nil {
		query.Set("maximumcandidatelistsize", strconv.Itoa(*req.MaximumCandidateListSize))
	}
	return v.client.endpoint(addressValidationPath+strconv.Itoa(int(req.RequestOption)), query), nil
}

// Validate sends one address to UPS and returns the decoded XAVResponse.
func (v *AddressValidator) Validate(ctx context.Context, req AddressValidationRequest) (*XAVResponse, error) {
	endpoint, err := v.URL(req)
	if err != nil {
		return nil, err
	}

	body := xavRequestEnvelope{XAVRequest: xavRequest{AddressKeyFormat: newAddressKeyFormat(req.Address)}}
	resp, err := v.client.postJSON(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, upserr.FromStatus(resp.StatusCode, resp.Header, resp.Body)
	}

	var env xavResponseEnvelope
	if err := resp.DecodeJSON(&env); err != nil {
		return nil, upserr.Decoding(err, resp.Body)
	}
	if env.XAVResponse == nil {
		return nil, upserr.Decoding(fmt.Errorf("response has no XAVResponse"), resp.Body)
	}

	v.client.logger.Info().
		Str("option", req.RequestOption.String()).
		Bool("valid", env.XAVResponse.IsValid()).
		Int("candidates", len(env.XAVResponse.Candidate)).
		Msg("Address validated")
	return env.XAVResponse, nil
}

// ValidateAddress is Validate for a single address given as plain fields. An
// empty country defaults to US.
func (v *AddressValidator) ValidateAddress(ctx context.Context, street, city, state, postalCode, countryCode string, option RequestOption) (*XAVResponse, error) {
	if countryCode == "" {
		countryCode = "US"
	}
	return v.Validate(ctx, AddressValidationRequest{
		Address: Address{
			Street:      street,
			City:        city,
			State:       state,
			PostalCode:  postalCode,
			CountryCode: countryCode,
		},
		RequestOption: option,
	})
}

// ValidateUSAddressWithClassification validates and classifies a US address.
func (v *AddressValidator) ValidateUSAddressWithClassification(ctx context.Context, street, city, state, zip string) (*XAVResponse, error) {
	return v.ValidateAddress(ctx, street, city, state, zip, "US", OptionBoth)
}
