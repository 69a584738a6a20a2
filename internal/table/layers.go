package table

import (
	"io"

	"github.com/san-kum/spinsim/internal/device"
)

// ReadLayers parses one layer per row. Hoe defaults to 1 when the column
// is absent or empty.
func ReadLayers(r io.Reader) ([]device.Layer, error) {
	rows, err := readRows(r, LayerColumns)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errNoRows("layer")
	}

	layers := make([]device.Layer, 0, len(rows))
	for _, rw := range rows {
		c := &collector{r: rw}
		l := device.Layer{
			ID:        c.int("layer"),
			Ms:        c.float("Ms"),
			Ku:        c.float("Ku"),
			Kdir:      c.vec("Kdir"),
			J:         c.float("J"),
			Alpha:     c.float("alpha"),
			Thickness: c.float("th"),
			Demag:     c.vec("N"),
			AMR:       c.float("AMR"),
			SMR:       c.float("SMR"),
			AHE:       c.float("AHE"),
			Rx0:       c.float("Rx0"),
			Ry0:       c.float("Ry0"),
			Width:     c.float("w"),
			Length:    c.float("l"),
			Hoe:       1,
		}
		if rw.has("J2") {
			l.J2 = c.float("J2")
		}
		if rw.has("Hoe") {
			l.Hoe = c.float("Hoe")
		}
		if rw.has("Idir") {
			l.Idir = c.vec("Idir")
		}
		if c.err != nil {
			return nil, c.err
		}
		layers = append(layers, l)
	}
	return layers, nil
}

func LoadLayers(path string) ([]device.Layer, error) {
	return openFile(path, ReadLayers)
}

// WriteLayers writes the required columns followed by J2, Hoe and Idir.
func WriteLayers(w io.Writer, layers []device.Layer) error {
	header := append(append([]string{}, LayerColumns...), layerOptional...)
	rows := make([][]string, 0, len(layers))
	for _, l := range layers {
		rows = append(rows, []string{
			formatFloat(float64(l.ID)),
			formatFloat(l.Ms),
			formatFloat(l.Ku),
			l.Kdir.String(),
			formatFloat(l.J),
			formatFloat(l.Alpha),
			formatFloat(l.Thickness),
			l.Demag.String(),
			formatFloat(l.AMR),
			formatFloat(l.SMR),
			formatFloat(l.AHE),
			formatFloat(l.Rx0),
			formatFloat(l.Ry0),
			formatFloat(l.Width),
			formatFloat(l.Length),
			formatFloat(l.J2),
			formatFloat(l.Hoe),
			l.Idir.String(),
		})
	}
	return writeTable(w, header, rows)
}
