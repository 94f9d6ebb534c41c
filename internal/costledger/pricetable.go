package costledger

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// priceTableFile is the on-disk shape of the price table: a flat map from
// model id to per-million-token rates.
type priceTableFile struct {
	Models map[string]Price `yaml:"models"`
}

// LoadPriceTable reads a YAML price table from path. A missing file is not
// an error — it yields an empty table, under which every Estimate call
// returns 0 until an operator provides real pricing.
func LoadPriceTable(path string) (map[string]Price, error) {
	if path == "" {
		return map[string]Price{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Price{}, nil
		}
		return nil, fmt.Errorf("read price table %q: %w", path, err)
	}
	var f priceTableFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse price table %q: %w", path, err)
	}
	if f.Models == nil {
		f.Models = map[string]Price{}
	}
	return f.Models, nil
}
