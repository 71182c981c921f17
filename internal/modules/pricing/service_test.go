package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceQuotes(t *testing.T) {
	svc := NewService(DefaultRateTable())

	q, err := svc.QuoteBaseFare(sedanTrip(100))
	require.NoError(t, err)
	assert.Equal(t, int64(2000), q.Total.Amount)

	_, err = svc.QuoteHourlyFare(HourlyFareRequest{VehicleType: VehicleSedan, PackageType: "24hr", PickupTime: at(10, 0)})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "configuration", ErrorKind(unknownVehicle("boat")))
	assert.Equal(t, "configuration", ErrorKind(unknownPackage("1hr")))
	assert.Equal(t, "invalid_argument", ErrorKind(&InvalidArgumentError{Field: "distanceKm"}))
	assert.Equal(t, "unknown", ErrorKind(errors.New("boom")))
}
