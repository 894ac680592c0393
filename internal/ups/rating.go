package ups

import (
	"strconv"
	"strings"
)

// RateOption is the final path segment of a Rating API call.
type RateOption string

const (
	RateOptionShop              RateOption = "Shop"
	RateOptionRate              RateOption = "Rate"
	RateOptionShopTimeInTransit RateOption = "Shoptimeintransit"
)

// ParseRateOption accepts the option case-insensitively.
func ParseRateOption(s string) (RateOption, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shop":
		return RateOptionShop, true
	case "rate":
		return RateOptionRate, true
	case "shoptimeintransit":
		return RateOptionShopTimeInTransit, true
	}
	return "", false
}

type rateRequestEnvelope struct {
	RateRequest RateRequest `json:"RateRequest"`
}

type RateRequest struct {
	Request  RateRequestInfo `json:"Request"`
	Shipment RateShipment    `json:"Shipment"`
}

type RateRequestInfo struct {
	SubVersion           string                `json:"SubVersion,omitempty"`
	TransactionReference *TransactionReference `json:"TransactionReference,omitempty"`
}

type RateShipment struct {
	Shipper        RateAddress     `json:"Shipper"`
	ShipTo         RateAddress     `json:"ShipTo"`
	ShipFrom       RateAddress     `json:"ShipFrom"`
	PaymentDetails *PaymentDetails `json:"PaymentDetails,omitempty"`
	Service        *Service        `json:"Service,omitempty"`
	NumOfPieces    string          `json:"NumOfPieces,omitempty"`
	Package        RatePackage     `json:"Package"`
}

type RateAddress struct {
	Name          string      `json:"Name,omitempty"`
	ShipperNumber string      `json:"ShipperNumber,omitempty"`
	Address       AddressInfo `json:"Address"`
}

type AddressInfo struct {
	AddressLine                 []string `json:"AddressLine,omitempty"`
	City                        string   `json:"City"`
	StateProvinceCode           string   `json:"StateProvinceCode"`
	PostalCode                  string   `json:"PostalCode"`
	CountryCode                 string   `json:"CountryCode"`
	ResidentialAddressIndicator string   `json:"ResidentialAddressIndicator,omitempty"`
}

type PaymentDetails struct {
	ShipmentCharge []ShipmentCharge `json:"ShipmentCharge"`
}

type ShipmentCharge struct {
	Type        string       `json:"Type"`
	BillShipper *BillShipper `json:"BillShipper,omitempty"`
}

type BillShipper struct {
	AccountNumber string `json:"AccountNumber"`
}

type Service struct {
	Code        string `json:"Code"`
	Description string `json:"Description,omitempty"`
}

var serviceNames = map[string]string{
	"01": "UPS Next Day Air",
	"02": "UPS 2nd Day Air",
	"03": "UPS Ground",
	"12": "UPS 3 Day Select",
	"13": "UPS Next Day Air Saver",
	"14": "UPS Next Day Air Early",
	"54": "UPS Worldwide Express Plus",
	"65": "UPS Worldwide Saver",
}

// ServiceName returns the marketing name for a UPS service code.
func ServiceName(code string) string {
	if name, ok := serviceNames[code]; ok {
		return name
	}
	return "UPS Service " + code
}

func (s Service) Name() string {
	return ServiceName(s.Code)
}

type RatePackage struct {
	PackagingType CodeDescription `json:"PackagingType"`
	Dimensions    *Dimensions     `json:"Dimensions,omitempty"`
	PackageWeight PackageWeight   `json:"PackageWeight"`
}

type Dimensions struct {
	UnitOfMeasurement CodeDescription `json:"UnitOfMeasurement"`
	Length            string          `json:"Length"`
	Width             string          `json:"Width"`
	Height            string          `json:"Height"`
}

type PackageWeight struct {
	UnitOfMeasurement CodeDescription `json:"UnitOfMeasurement"`
	Weight            string          `json:"Weight"`
}

type rateResponseEnvelope struct {
	RateResponse *RateResponse `json:"RateResponse"`
}

type RateResponse struct {
	Response      ResponseInfo             `json:"Response"`
	RatedShipment OneOrMany[RatedShipment] `json:"RatedShipment"`
}

type RatedShipment struct {
	Disclaimer            OneOrMany[CodeDescription] `json:"Disclaimer,omitempty"`
	Service               Service                    `json:"Service"`
	RateChart             string                     `json:"RateChart,omitempty"`
	RatedShipmentAlert    OneOrMany[CodeDescription] `json:"RatedShipmentAlert,omitempty"`
	BillingWeight         *PackageWeight             `json:"BillingWeight,omitempty"`
	Zone                  string                     `json:"Zone,omitempty"`
	TransportationCharges *Charges                   `json:"TransportationCharges,omitempty"`
	BaseServiceCharge     *Charges                   `json:"BaseServiceCharge,omitempty"`
	ItemizedCharges       OneOrMany[ItemizedCharge]  `json:"ItemizedCharges,omitempty"`
	ServiceOptionsCharges *Charges                   `json:"ServiceOptionsCharges,omitempty"`
	TaxCharges            OneOrMany[TaxCharge]       `json:"TaxCharges,omitempty"`
	TotalCharges          Charges                    `json:"TotalCharges"`
	TotalChargesWithTaxes *Charges                   `json:"TotalChargesWithTaxes,omitempty"`
	NegotiatedRateCharges *NegotiatedRateCharges     `json:"NegotiatedRateCharges,omitempty"`
	RatedPackage          OneOrMany[RatedPackage]    `json:"RatedPackage,omitempty"`
	TimeInTransit         *TimeInTransit             `json:"TimeInTransit,omitempty"`
	GuaranteedDelivery    *GuaranteedDelivery        `json:"GuaranteedDelivery,omitempty"`
}

type Charges struct {
	CurrencyCode  string `json:"CurrencyCode"`
	MonetaryValue string `json:"MonetaryValue"`
}

type ItemizedCharge struct {
	Code          string `json:"Code"`
	Description   string `json:"Description,omitempty"`
	CurrencyCode  string `json:"CurrencyCode"`
	MonetaryValue string `json:"MonetaryValue"`
}

type TaxCharge struct {
	Type          string `json:"Type"`
	MonetaryValue string `json:"MonetaryValue"`
}

type NegotiatedRateCharges struct {
	ItemizedCharges       OneOrMany[ItemizedCharge] `json:"ItemizedCharges,omitempty"`
	TaxCharges            OneOrMany[TaxCharge]      `json:"TaxCharges,omitempty"`
	TotalCharge           Charges                   `json:"TotalCharge"`
	TotalChargesWithTaxes *Charges                  `json:"TotalChargesWithTaxes,omitempty"`
}

type RatedPackage struct {
	TransportationCharges *Charges                  `json:"TransportationCharges,omitempty"`
	BaseServiceCharge     *Charges                  `json:"BaseServiceCharge,omitempty"`
	ServiceOptionsCharges *Charges                  `json:"ServiceOptionsCharges,omitempty"`
	ItemizedCharges       OneOrMany[ItemizedCharge] `json:"ItemizedCharges,omitempty"`
	TotalCharges          *Charges                  `json:"TotalCharges,omitempty"`
	Weight                string                    `json:"Weight,omitempty"`
	BillingWeight         *PackageWeight            `json:"BillingWeight,omitempty"`
}

type TimeInTransit struct {
	PickupDate             string          `json:"PickupDate,omitempty"`
	DocumentsOnlyIndicator string          `json:"DocumentsOnlyIndicator,omitempty"`
	ServiceSummary         *ServiceSummary `json:"ServiceSummary,omitempty"`
}

type ServiceSummary struct {
	Service          Service           `json:"Service"`
	EstimatedArrival *EstimatedArrival `json:"EstimatedArrival,omitempty"`
	Disclaimer       string            `json:"Disclaimer,omitempty"`
}

type EstimatedArrival struct {
	Arrival               *DateTime `json:"Arrival,omitempty"`
	Pickup                *DateTime `json:"Pickup,omitempty"`
	BusinessDaysInTransit string    `json:"BusinessDaysInTransit,omitempty"`
	DayOfWeek             string    `json:"DayOfWeek,omitempty"`
	CustomerCenterCutoff  string    `json:"CustomerCenterCutoff,omitempty"`
	RestDays              string    `json:"RestDays,omitempty"`
	TotalTransitDays      string    `json:"TotalTransitDays,omitempty"`
}

type DateTime struct {
	Date string `json:"Date,omitempty"`
	Time string `json:"Time,omitempty"`
}

type GuaranteedDelivery struct {
	BusinessDaysInTransit string `json:"BusinessDaysInTransit,omitempty"`
	DeliveryByTime        string `json:"DeliveryByTime,omitempty"`
}

func (r RatedShipment) ServiceName() string {
	return r.Service.Name()
}

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "CA$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"MXN": "MX$",
}

// FormattedPrice renders TotalCharges, e.g. "$12.50". Unknown currencies and
// non-numeric values fall back to "CODE value".
func (r RatedShipment) FormattedPrice() string {
	return formatMoney(r.TotalCharges.CurrencyCode, r.TotalCharges.MonetaryValue)
}

func formatMoney(code, value string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	amount, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	symbol, known := currencySymbols[code]
	if err != nil || !known {
		return strings.TrimSpace(code + " " + value)
	}
	if code == "JPY" {
		return symbol + strconv.FormatFloat(amount, 'f', 0, 64)
	}
	return symbol + strconv.FormatFloat(amount, 'f', 2, 64)
}

// DeliveryEstimate prefers GuaranteedDelivery and falls back to the
// time-in-transit summary. It returns "" when neither is present.
func (r RatedShipment) DeliveryEstimate() string {
	if g := r.GuaranteedDelivery; g != nil {
		var est string
		if g.BusinessDaysInTransit != "" {
			est = businessDays(g.BusinessDaysInTransit)
		}
		if g.DeliveryByTime != "" {
			if est != "" {
				est += " by " + g.DeliveryByTime
			} else {
				est = "By " + g.DeliveryByTime
			}
		}
		return est
	}

	if r.TimeInTransit == nil || r.TimeInTransit.ServiceSummary == nil || r.TimeInTransit.ServiceSummary.EstimatedArrival == nil {
		return ""
	}
	arrival := r.TimeInTransit.ServiceSummary.EstimatedArrival
	if arrival.BusinessDaysInTransit != "" {
		return businessDays(arrival.BusinessDaysInTransit)
	}
	if arrival.Arrival != nil && arrival.Arrival.Date != "" {
		return "Arrives " + arrival.Arrival.Date
	}
	return ""
}

func businessDays(n string) string {
	if n == "1" {
		return "1 business day"
	}
	return n + " business days"
}
