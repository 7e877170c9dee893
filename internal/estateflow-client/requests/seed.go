package requests

import (
	_ "embed"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

//go:embed seed.json
var seedJSON []byte

// Seed returns a fresh copy of the demo catalog used when the cache is empty.
func Seed() ([]Request, error) {
	var out []Request
	if err := json.Unmarshal(seedJSON, &out); err != nil {
		return nil, errors.Wrap(err, "decode seed catalog")
	}
	return out, nil
}
