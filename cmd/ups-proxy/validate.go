package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dvcrn/ups-proxy/internal/ups"
	"github.com/spf13/cobra"
)

var (
	valStreet     string
	valCity       string
	valState      string
	valZip        string
	valCountry    string
	valOption     string
	valMaxResults int
	valJSON       bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a street address",
	Long: `Validate and optionally classify a street address.

Examples:
  ups-proxy validate --street "26601 ALISO CREEK ROAD" --city "ALISO VIEJO" --state CA --zip 92656
  ups-proxy validate --street "1 Main St" --zip 30301 --option both --json`,
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&valStreet, "street", "", "Street address line")
	f.StringVar(&valCity, "city", "", "City")
	f.StringVar(&valState, "state", "", "State or province code")
	f.StringVar(&valZip, "zip", "", "Postal code")
	f.StringVar(&valCountry, "country", "US", "Country code")
	f.StringVar(&valOption, "option", "validation", "Request option: validation, classification or both (1-3)")
	f.IntVar(&valMaxResults, "max-candidates", 0, "Maximum number of candidates (0 for the UPS default)")
	f.BoolVar(&valJSON, "json", false, "Print the raw response as JSON")
	_ = validateCmd.MarkFlagRequired("street")
}

func runValidate(cmd *cobra.Command, args []string) error {
	option, ok := ups.ParseRequestOption(valOption)
	if !ok {
		return fmt.Errorf("unknown request option %q", valOption)
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	req := ups.AddressValidationRequest{
		Address: ups.Address{
			Street:      valStreet,
			City:        valCity,
			State:       valState,
			PostalCode:  valZip,
			CountryCode: valCountry,
		},
		RequestOption: option,
	}
	if valMaxResults > 0 {
		req.MaximumCandidateListSize = &valMaxResults
	}

	res, err := a.Addresses.Validate(cmd.Context(), req)
	if err != nil {
		return err
	}

	if valJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Println(res.Summary())
	for i, c := range res.Candidate {
		line := ""
		if c.AddressKeyFormat != nil {
			line = c.AddressKeyFormat.FormattedAddress()
		}
		if c.AddressClassification != nil {
			line += " (" + c.AddressClassification.Description + ")"
		}
		fmt.Printf("%d. %s\n", i+1, line)
	}
	return nil
}
