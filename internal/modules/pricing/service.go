// README: Pricing service; instrumented facade over the calculator used by HTTP and booking.
package pricing

import (
	"errors"

	"taxibook/internal/metrics"
)

const (
	ModeBase   = "base"
	ModeHourly = "hourly"
)

type Service struct {
	calc *Calculator
}

func NewService(rates *RateTable) *Service {
	return &Service{calc: NewCalculator(rates)}
}

func (s *Service) Rates() *RateTable { return s.calc.Rates() }

func (s *Service) QuoteBaseFare(req BaseFareRequest) (Quote, error) {
	q, err := s.calc.QuoteBaseFare(req)
	observe(ModeBase, string(req.VehicleType), err)
	return q, err
}

func (s *Service) QuoteHourlyFare(req HourlyFareRequest) (Quote, error) {
	q, err := s.calc.QuoteHourlyFare(req)
	observe(ModeHourly, string(req.VehicleType), err)
	return q, err
}

func observe(mode, vehicle string, err error) {
	if err == nil {
		metrics.CountFare(mode, vehicle)
		return
	}
	metrics.CountFareError(mode, ErrorKind(err))
}

// ErrorKind is a stable label for a calculation error.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "unknown"
	}
}
