package spectrum

import (
	"encoding/csv"
	"io"
	"strconv"
)

// csvHeader matches the archive's spectrum point columns.
var csvHeader = []string{"frequency", "eps_real", "eps_imag", "n_real", "n_imag", "absorption", "molar_absorption"}

// WriteCSV renders points as a CSV report: one header row, then one
// row per grid point in grid order.
func WriteCSV(w io.Writer, points []Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	rec := make([]string, len(csvHeader))
	for _, p := range points {
		rec[0] = formatFloat(p.Frequency)
		rec[1] = formatFloat(real(p.EpsEff))
		rec[2] = formatFloat(imag(p.EpsEff))
		rec[3] = formatFloat(real(p.RefractiveIndex))
		rec[4] = formatFloat(imag(p.RefractiveIndex))
		rec[5] = formatFloat(p.Absorption)
		rec[6] = formatFloat(p.MolarAbsorption)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatFloat prints the shortest representation that round-trips.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
