// README: Command-line fare calculator; prices one trip against the built-in or a file rate table.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"taxibook/internal/modules/pricing"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	vehicle    string
	km         float64
	roundTrip  bool
	days       int
	toll       float64
	parking    float64
	waiting    float64
	hill       bool
	pickup     string
	pkg        string
	extraHours float64
	extraKm    float64
	rates      string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("farecalc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.vehicle, "vehicle", string(pricing.VehicleSedan), "vehicle type")
	fs.Float64Var(&o.km, "km", 0, "trip distance in kilometres")
	fs.BoolVar(&o.roundTrip, "round-trip", false, "price as a round trip")
	fs.IntVar(&o.days, "days", 1, "number of days")
	fs.Float64Var(&o.toll, "toll", 0, "toll charges")
	fs.Float64Var(&o.parking, "parking", 0, "parking charges")
	fs.Float64Var(&o.waiting, "waiting", 0, "waiting hours")
	fs.BoolVar(&o.hill, "hill", false, "hill station trip")
	fs.StringVar(&o.pickup, "pickup", "", "pickup time, RFC3339 (default now)")
	fs.StringVar(&o.pkg, "package", "", "hourly package (4hr, 8hr, 12hr); switches to hourly pricing")
	fs.Float64Var(&o.extraHours, "extra-hours", 0, "hours beyond the package")
	fs.Float64Var(&o.extraKm, "extra-km", 0, "kilometres beyond the package")
	fs.StringVar(&o.rates, "rates", "", "rate file (yaml, json or toml); built-in tariff when empty")
	return o, fs.Parse(args)
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	pickup := time.Now()
	if o.pickup != "" {
		pickup, err = time.Parse(time.RFC3339, o.pickup)
		if err != nil {
			fmt.Fprintf(stderr, "farecalc: bad -pickup: %v\n", err)
			return exitUsage
		}
	}

	rates := pricing.DefaultRateTable()
	if o.rates != "" {
		rates, err = pricing.LoadRateFile(o.rates)
		if err != nil {
			fmt.Fprintf(stderr, "farecalc: %v\n", err)
			return exitFailure
		}
	}
	svc := pricing.NewService(rates)

	var q pricing.Quote
	if o.pkg != "" {
		q, err = svc.QuoteHourlyFare(pricing.HourlyFareRequest{
			VehicleType:     pricing.VehicleType(o.vehicle),
			PackageType:     o.pkg,
			PickupTime:      pickup,
			ParkingCharges:  o.parking,
			ExtraHours:      o.extraHours,
			ExtraKilometers: o.extraKm,
		})
	} else {
		q, err = svc.QuoteBaseFare(pricing.BaseFareRequest{
			VehicleType:    pricing.VehicleType(o.vehicle),
			DistanceKm:     o.km,
			IsRoundTrip:    o.roundTrip,
			NumberOfDays:   o.days,
			TollCharges:    o.toll,
			ParkingCharges: o.parking,
			WaitingHours:   o.waiting,
			IsHillStation:  o.hill,
			PickupTime:     pickup,
		})
	}
	if err != nil {
		fmt.Fprintf(stderr, "farecalc: %v\n", err)
		if errors.Is(err, pricing.ErrInvalidArgument) || errors.Is(err, pricing.ErrConfiguration) {
			return exitUsage
		}
		return exitFailure
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(q); err != nil {
		fmt.Fprintf(stderr, "farecalc: %v\n", err)
		return exitFailure
	}
	return exitOK
}
