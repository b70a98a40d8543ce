package calc

import (
	"github.com/parkerwray/PDielec/internal/canon"
)

const domainCalculation = "pdielec/calc/v1"

// Hash returns the content address of the calculation: a hex SHA-256
// over its canonical JSON with a domain prefix. Two calculations hash
// equal exactly when every resolved parameter, the structure, and the
// dataset bindings agree.
func (c *Calculation) Hash() (string, error) {
	canonical, err := c.Canonical()
	if err != nil {
		return "", err
	}
	return canon.Hash(domainCalculation, canonical), nil
}
