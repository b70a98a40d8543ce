package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Golden returns a goldie instance configured with the repository's
// fixture conventions: golden files live in the calling package's
// testdata/golden directory and carry a .golden suffix.
//
// To regenerate golden files after an intentional output change, run:
//
//	go test ./... -update
//
// Golden files are the source of truth for report and deck output, so
// review regenerated fixtures like any other diff.
func Golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
