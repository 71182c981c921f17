package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration   = errors.New("pricing: configuration error")
	ErrInvalidArgument = errors.New("pricing: invalid argument")
)

// ConfigurationError reports a lookup key missing from the rate table.
// There is never a fallback rate.
type ConfigurationError struct {
	Kind string
	Key  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pricing: unknown %s %q", e.Kind, e.Key)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// InvalidArgumentError reports a request field outside its domain.
type InvalidArgumentError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("pricing: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

func unknownVehicle(v VehicleType) error {
	return &ConfigurationError{Kind: "vehicle type", Key: string(v)}
}

func unknownPackage(name string) error {
	return &ConfigurationError{Kind: "hourly package", Key: name}
}
