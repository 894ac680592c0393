package ups

import (
	"bytes"
	"encoding/json"
	"strings"
)

// RequestOption selects what the Address Validation API does.
type RequestOption int

const (
	OptionValidation     RequestOption = 1
	OptionClassification RequestOption = 2
	OptionBoth           RequestOption = 3
)

func (o RequestOption) Valid() bool {
	return o >= OptionValidation && o <= OptionBoth
}

func (o RequestOption) String() string {
	switch o {
	case OptionValidation:
		return "validation"
	case OptionClassification:
		return "classification"
	case OptionBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParseRequestOption accepts "1".."3" or the option names.
func ParseRequestOption(s string) (RequestOption, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "validation", "":
		return OptionValidation, true
	case "2", "classification":
		return OptionClassification, true
	case "3", "both":
		return OptionBoth, true
	}
	return 0, false
}

type Address struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
}

type AddressValidationRequest struct {
	Address                  Address       `json:"address"`
	RequestOption            RequestOption `json:"requestOption"`
	RegionalRequestIndicator string        `json:"regionalRequestIndicator,omitempty"`
	MaximumCandidateListSize *int          `json:"maximumCandidateListSize,omitempty"`
}

type xavRequestEnvelope struct {
	XAVRequest xavRequest `json:"XAVRequest"`
}

type xavRequest struct {
	AddressKeyFormat AddressKeyFormat `json:"AddressKeyFormat"`
}

// AddressKeyFormat is the UPS wire shape of an address, used both in requests
// and in returned candidates.
type AddressKeyFormat struct {
	ConsigneeName       string            `json:"ConsigneeName,omitempty"`
	AddressLine         OneOrMany[string] `json:"AddressLine,omitempty"`
	Region              string            `json:"Region,omitempty"`
	PoliticalDivision2  string            `json:"PoliticalDivision2,omitempty"`
	PoliticalDivision1  string            `json:"PoliticalDivision1,omitempty"`
	PostcodePrimaryLow  string            `json:"PostcodePrimaryLow,omitempty"`
	PostcodeExtendedLow string            `json:"PostcodeExtendedLow,omitempty"`
	CountryCode         string            `json:"CountryCode,omitempty"`
}

func newAddressKeyFormat(a Address) AddressKeyFormat {
	return AddressKeyFormat{
		AddressLine:        OneOrMany[string]{a.Street},
		PoliticalDivision2: a.City,
		PoliticalDivision1: a.State,
		PostcodePrimaryLow: a.PostalCode,
		CountryCode:        a.CountryCode,
	}
}

// FormattedAddress renders the candidate one component per line:
// street lines, "City, ST 12345-6789", country.
func (a AddressKeyFormat) FormattedAddress() string {
	var parts []string
	parts = append(parts, a.AddressLine...)

	var csz strings.Builder
	csz.WriteString(a.PoliticalDivision2)
	if a.PoliticalDivision1 != "" {
		if csz.Len() > 0 {
			csz.WriteString(", ")
		}
		csz.WriteString(a.PoliticalDivision1)
	}
	if a.PostcodePrimaryLow != "" {
		if csz.Len() > 0 {
			csz.WriteString(" ")
		}
		csz.WriteString(a.PostcodePrimaryLow)
	}
	if a.PostcodeExtendedLow != "" {
		csz.WriteString("-" + a.PostcodeExtendedLow)
	}
	if csz.Len() > 0 {
		parts = append(parts, csz.String())
	}
	if a.CountryCode != "" {
		parts = append(parts, a.CountryCode)
	}
	return strings.Join(parts, "\n")
}

type xavResponseEnvelope struct {
	XAVResponse *XAVResponse `json:"XAVResponse"`
}

type XAVResponse struct {
	Response                  ResponseInfo                `json:"Response"`
	ValidAddressIndicator     *string                     `json:"ValidAddressIndicator,omitempty"`
	AmbiguousAddressIndicator *string                     `json:"AmbiguousAddressIndicator,omitempty"`
	NoCandidatesIndicator     *string                     `json:"NoCandidatesIndicator,omitempty"`
	AddressClassification     *CodeDescription            `json:"AddressClassification,omitempty"`
	Candidate                 OneOrMany[AddressCandidate] `json:"Candidate,omitempty"`
}

type ResponseInfo struct {
	ResponseStatus       CodeDescription            `json:"ResponseStatus"`
	Alert                OneOrMany[CodeDescription] `json:"Alert,omitempty"`
	TransactionReference *TransactionReference      `json:"TransactionReference,omitempty"`
}

type CodeDescription struct {
	Code        string `json:"Code"`
	Description string `json:"Description,omitempty"`
}

type TransactionReference struct {
	CustomerContext       string `json:"CustomerContext,omitempty"`
	TransactionIdentifier string `json:"TransactionIdentifier,omitempty"`
}

type AddressCandidate struct {
	AddressKeyFormat      *AddressKeyFormat `json:"AddressKeyFormat,omitempty"`
	AddressClassification *CodeDescription  `json:"AddressClassification,omitempty"`
}

// IsSuccessful reports a ResponseStatus code of "1".
func (r *XAVResponse) IsSuccessful() bool {
	return r.Response.ResponseStatus.Code == "1"
}

// IsValid reports that UPS flagged the address as valid. The indicator is
// sent as an empty string, so its presence is what counts.
func (r *XAVResponse) IsValid() bool {
	return r.ValidAddressIndicator != nil && r.IsSuccessful()
}

func (r *XAVResponse) IsAmbiguous() bool {
	return r.AmbiguousAddressIndicator != nil
}

func (r *XAVResponse) HasNoCandidates() bool {
	return r.NoCandidatesIndicator != nil
}

func (r *XAVResponse) HasResults() bool {
	return len(r.Candidate) > 0
}

// BestCandidate returns the first candidate, which UPS ranks highest.
func (r *XAVResponse) BestCandidate() *AddressCandidate {
	if len(r.Candidate) == 0 {
		return nil
	}
	return &r.Candidate[0]
}

// Summary is a short human-readable description of the validation outcome.
func (r *XAVResponse) Summary() string {
	switch {
	case r.IsValid():
		return "✅ Address is VALID"
	case r.IsAmbiguous():
		return "⚠️ Address is AMBIGUOUS"
	case r.HasNoCandidates():
		return "❌ No candidates found"
	default:
		return "❓ Unknown validation status"
	}
}

// OneOrMany decodes UPS fields that are an object when there is a single
// element and an array otherwise.
type OneOrMany[T any] []T

func (o *OneOrMany[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*o = nil
		return nil
	}
	if b[0] == '[' {
		var many []T
		if err := json.Unmarshal(b, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*o = OneOrMany[T]{one}
	return nil
}
