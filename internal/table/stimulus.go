package table

import (
	"io"

	"github.com/san-kum/spinsim/internal/stimulus"
)

// ReadStimulus parses the first data row. In H mode Hmin/Hmax/Hsteps span
// the field magnitude at fixed HTheta and HPhi; in Theta or Phi mode they
// span that angle and Hmag gives the fixed magnitude.
func ReadStimulus(r io.Reader) (stimulus.Spec, error) {
	rows, err := readRows(r, StimulusColumns)
	if err != nil {
		return stimulus.Spec{}, err
	}
	if len(rows) == 0 {
		return stimulus.Spec{}, errNoRows("stimulus")
	}
	rw := rows[0]

	mode := stimulus.ModeH
	if rw.has("mode") {
		if mode, err = stimulus.ParseMode(rw.cells["mode"]); err != nil {
			return stimulus.Spec{}, err
		}
	}

	c := &collector{r: rw}
	lo, hi := c.float("Hmin"), c.float("Hmax")
	theta, phi := c.float("HTheta"), c.float("HPhi")
	spec := stimulus.Spec{
		Mode:      mode,
		Theta:     stimulus.Fixed(theta),
		Phi:       stimulus.Fixed(phi),
		Steps:     c.int("Hsteps"),
		Back:      c.bool("Hback"),
		FreqMin:   c.float("fmin"),
		FreqMax:   c.float("fmax"),
		FreqSteps: c.int("fsteps"),
		IAC:       c.float("IAC"),
		IDC:       c.float("IDC"),
		IDir:      c.vec("Idir"),
		Phase:     c.float("fphase"),
		VDir:      c.vec("Vdir"),
		LLGTime:   c.float("LLGtime"),
		LLGSteps:  c.int("LLGsteps"),
	}
	swept := stimulus.Axis{Min: lo, Max: hi}
	switch mode {
	case stimulus.ModeH:
		spec.H = swept
	case stimulus.ModeTheta:
		spec.Theta = swept
	case stimulus.ModePhi:
		spec.Phi = swept
	}
	if mode != stimulus.ModeH {
		if !rw.has("Hmag") {
			return stimulus.Spec{}, rw.errorf("Hmag", "required in %s mode", mode)
		}
		spec.H = stimulus.Fixed(c.float("Hmag"))
	}
	if c.err != nil {
		return stimulus.Spec{}, c.err
	}
	return spec, nil
}

func LoadStimulus(path string) (stimulus.Spec, error) {
	return openFile(path, ReadStimulus)
}

// WriteStimulus is the inverse of ReadStimulus.
func WriteStimulus(w io.Writer, s stimulus.Spec) error {
	var swept stimulus.Axis
	hmag := ""
	switch s.Mode {
	case stimulus.ModeTheta:
		swept = s.Theta
	case stimulus.ModePhi:
		swept = s.Phi
	default:
		swept = s.H
	}
	if s.Mode != stimulus.ModeH {
		hmag = formatFloat(s.H.Min)
	}
	back := "0"
	if s.Back {
		back = "1"
	}

	header := append(append([]string{}, StimulusColumns...), stimulusOptional...)
	rec := []string{
		formatFloat(swept.Min),
		formatFloat(swept.Max),
		formatFloat(float64(s.Steps)),
		back,
		formatFloat(s.Theta.Min),
		formatFloat(s.Phi.Min),
		formatFloat(s.FreqMin),
		formatFloat(s.FreqMax),
		formatFloat(float64(s.FreqSteps)),
		formatFloat(s.IAC),
		formatFloat(s.IDC),
		s.IDir.String(),
		formatFloat(s.Phase),
		s.VDir.String(),
		formatFloat(s.LLGTime),
		formatFloat(float64(s.LLGSteps)),
		string(s.Mode),
		hmag,
	}
	return writeTable(w, header, [][]string{rec})
}
