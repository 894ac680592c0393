package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dvcrn/ups-proxy/internal/ups"
	"github.com/spf13/cobra"
)

var (
	rateShipment ups.QuickShipment
	rateJSON     bool
)

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Shop rates for a single package",
	Long: `Shop all available UPS services for one package between two postal codes,
billed to the configured account number.

Example:
  ups-proxy rate --from-zip 30301 --from-state GA --to-zip 10001 --to-state NY --weight 2.5`,
	RunE: runRate,
}

func init() {
	f := rateCmd.Flags()
	f.StringVar(&rateShipment.FromZip, "from-zip", "", "Origin postal code")
	f.StringVar(&rateShipment.FromState, "from-state", "", "Origin state code")
	f.StringVar(&rateShipment.FromCountry, "from-country", "US", "Origin country code")
	f.StringVar(&rateShipment.ToZip, "to-zip", "", "Destination postal code")
	f.StringVar(&rateShipment.ToState, "to-state", "", "Destination state code")
	f.StringVar(&rateShipment.ToCountry, "to-country", "US", "Destination country code")
	f.Float64Var(&rateShipment.WeightLbs, "weight", 1, "Package weight in pounds")
	f.Float64Var(&rateShipment.Length, "length", 0, "Package length in inches")
	f.Float64Var(&rateShipment.Width, "width", 0, "Package width in inches")
	f.Float64Var(&rateShipment.Height, "height", 0, "Package height in inches")
	f.BoolVar(&rateShipment.Residential, "residential", false, "Deliver to a residential address")
	f.BoolVar(&rateJSON, "json", false, "Print the raw response as JSON")
	_ = rateCmd.MarkFlagRequired("from-zip")
	_ = rateCmd.MarkFlagRequired("to-zip")
}

func runRate(cmd *cobra.Command, args []string) error {
	if rateShipment.WeightLbs <= 0 {
		return fmt.Errorf("weight must be positive, got %v", rateShipment.WeightLbs)
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	res, err := a.Rating.QuickShop(cmd.Context(), rateShipment)
	if err != nil {
		return err
	}

	if rateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if len(res.RatedShipment) == 0 {
		fmt.Println("No rates returned")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tPRICE\tDELIVERY")
	for _, rs := range res.RatedShipment {
		fmt.Fprintf(w, "%s\t%s\t%s\n", rs.ServiceName(), rs.FormattedPrice(), rs.DeliveryEstimate())
	}
	return w.Flush()
}
