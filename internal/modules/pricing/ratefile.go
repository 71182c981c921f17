package pricing

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// LoadRateFile reads a YAML, JSON or TOML rate table. Surcharge fields left
// out of the file keep the DefaultRateTableConfig values; explicit zeros stay zero.
func LoadRateFile(path string) (*RateTable, error) {
	cfg := RateTableConfig{Surcharges: DefaultRateTableConfig().Surcharges}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("read rate file %s: %w", path, err)
	}
	return NewRateTable(cfg)
}
