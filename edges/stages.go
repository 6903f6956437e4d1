package edges

import (
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-pixel/grid"
	"github.com/nvr-ai/go-pixel/images/kernels"
)

// blur smooths the input in place and leaves it padded.
func (d *Detector) blur() error {
	opts := d.opts()

	switch d.cfg.Blur {
	case kernels.BlurGaussian:
		return kernels.GaussianBlur(d.input, d.tmp, opts)
	case kernels.BlurBox:
		return kernels.BoxBlur(d.input, d.tmp, d.cfg.BoxRadius, opts)
	case kernels.BlurMedian:
		if err := kernels.Median(d.input, d.tmp, d.cfg.MedianWindow, d.pool); err != nil {
			return err
		}
		if err := d.input.Swap(d.tmp); err != nil {
			return err
		}
	case kernels.BlurBilateral:
		if err := d.bilateral.Filter(d.input, d.tmp, d.pool); err != nil {
			return err
		}
		if err := d.input.Swap(d.tmp); err != nil {
			return err
		}
	}
	return d.input.PadBorders(opts.Padding)
}

// gradient computes |Gx|+|Gy| into mag and atan2(Gy, Gx) into angle.
func (d *Detector) gradient() error {
	opts := d.opts()
	if err := grid.Convolve(d.input, d.sobelX, d.gx, opts); err != nil {
		return err
	}
	if err := grid.Convolve(d.input, d.sobelY, d.gy, opts); err != nil {
		return err
	}

	p, cols := opts.Padding, d.cols
	d.pool.Rows(d.rows-2*p, func(from, to int) {
		for y := from + p; y < to+p; y++ {
			gx, gy := d.gx.Row(y), d.gy.Row(y)
			mag, angle := d.mag.Row(y), d.angle.Row(y)
			for x := p; x < cols-p; x++ {
				mag[x] = math32.Abs(gx[x]) + math32.Abs(gy[x])
				angle[x] = math32.Atan2(gy[x], gx[x])
			}
		}
	})

	if err := d.mag.PadBorders(p); err != nil {
		return err
	}
	return d.angle.PadBorders(p)
}

// Quantized gradient directions.
const (
	sector0 = iota
	sector45
	sector90
	sector135
)

// sectorOffsets holds, per sector, the (dx, dy) step along the gradient.
// Rows grow downwards, so 45 degrees points right and down.
var sectorOffsets = [4][2]int{
	sector0:   {1, 0},
	sector45:  {1, 1},
	sector90:  {0, 1},
	sector135: {-1, 1},
}

// sector maps an angle in radians to one of four direction sectors.
func sector(rad float32) int {
	deg := rad * (180 / math32.Pi)
	if deg < 0 {
		deg += 180
	}
	switch {
	case deg < 22.5 || deg >= 157.5:
		return sector0
	case deg < 67.5:
		return sector45
	case deg < 112.5:
		return sector90
	default:
		return sector135
	}
}

// suppress keeps only magnitudes that are maximal along their gradient.
func (d *Detector) suppress() error {
	p, cols := d.cfg.Padding, d.cols
	mag := d.mag.Data()

	d.pool.Rows(d.rows-2*p, func(from, to int) {
		for y := from + p; y < to+p; y++ {
			angle, out := d.angle.Row(y), d.tmp.Row(y)
			for x := p; x < cols-p; x++ {
				off := sectorOffsets[sector(angle[x])]
				step := off[1]*cols + off[0]
				i := y*cols + x
				m := mag[i]
				if m >= mag[i+step] && m >= mag[i-step] {
					out[x] = m
				} else {
					out[x] = 0
				}
			}
		}
	})

	if err := d.tmp.PadBorders(p); err != nil {
		return err
	}
	return d.mag.Swap(d.tmp)
}

// threshold classifies suppressed magnitudes into tmp.
func (d *Detector) threshold() error {
	_, maxMag := grid.MinMax(d.mag)
	high := maxMag * d.cfg.HighRatio
	low := high * d.cfg.LowRatio

	if maxMag <= 0 {
		d.tmp.Fill(None)
		return nil
	}

	mag, out := d.mag.Data(), d.tmp.Data()
	cols := d.cols
	d.pool.Rows(d.rows, func(from, to int) {
		for i := from * cols; i < to*cols; i++ {
			switch v := mag[i]; {
			case v >= high:
				out[i] = Strong
			case v < low:
				out[i] = None
			default:
				out[i] = Weak
			}
		}
	})
	// mag was padded, so tmp's border already holds replicated classes.
	return nil
}

// hysteresis resolves weak pixels from the classes in tmp into mask.
func (d *Detector) hysteresis() error {
	p := d.cfg.Padding

	d.promote(d.tmp, d.tmp, d.mask)
	if err := d.mask.PadBorders(p); err != nil {
		return err
	}
	if d.cfg.Hysteresis != Propagate {
		return nil
	}

	for {
		changed := d.promote(d.tmp, d.mask, d.gx)
		if err := d.mask.Swap(d.gx); err != nil {
			return err
		}
		if err := d.mask.PadBorders(p); err != nil {
			return err
		}
		if changed == 0 {
			return nil
		}
	}
}

// promote writes into out: strong stays strong, weak becomes strong when a
// neighbor is strong in current, everything else becomes none. It returns how
// many pixels turned strong that were not strong in current.
func (d *Detector) promote(classes, current, out *grid.Grid[float32]) int64 {
	p, cols := d.cfg.Padding, d.cols
	cls, cur := classes.Data(), current.Data()
	neighbors := [8]int{-cols - 1, -cols, -cols + 1, -1, 1, cols - 1, cols, cols + 1}

	var changed atomic.Int64
	d.pool.Rows(d.rows-2*p, func(from, to int) {
		var local int64
		for y := from + p; y < to+p; y++ {
			row := out.Row(y)
			for x := p; x < cols-p; x++ {
				i := y*cols + x
				switch cls[i] {
				case Strong:
					row[x] = Strong
				case Weak:
					row[x] = None
					for _, n := range neighbors {
						if cur[i+n] == Strong {
							row[x] = Strong
							if cur[i] != Strong {
								local++
							}
							break
						}
					}
				default:
					row[x] = None
				}
			}
		}
		changed.Add(local)
	})
	return changed.Load()
}

// thicken optionally widens strong pixels of the mask.
func (d *Detector) thicken() error {
	p := d.cfg.Padding
	switch d.cfg.Thicken {
	case ThickenBox:
		if err := grid.Morph(d.mask, d.square, true, d.tmp, grid.Options{Pool: d.pool}); err != nil {
			return err
		}
	case ThickenDirectional:
		d.thickenDirectional()
	default:
		return nil
	}
	if err := d.mask.Swap(d.tmp); err != nil {
		return err
	}
	return d.mask.PadBorders(p)
}

// thickenDirectional gathers into tmp: a pixel becomes strong when it is
// strong or when a strong neighbor's gradient step lands on it.
func (d *Detector) thickenDirectional() {
	p, cols := d.cfg.Padding, d.cols
	mask, angle := d.mask.Data(), d.angle.Data()

	d.pool.Rows(d.rows-2*p, func(from, to int) {
		for y := from + p; y < to+p; y++ {
			out := d.tmp.Row(y)
			for x := p; x < cols-p; x++ {
				i := y*cols + x
				v := mask[i]
				if v != Strong {
				search:
					for dy := -1; dy <= 1; dy++ {
						for dx := -1; dx <= 1; dx++ {
							n := i + dy*cols + dx
							if (dx == 0 && dy == 0) || mask[n] != Strong {
								continue
							}
							off := sectorOffsets[sector(angle[n])]
							if (off[0] == dx && off[1] == dy) || (off[0] == -dx && off[1] == -dy) {
								v = Strong
								break search
							}
						}
					}
				}
				out[x] = v
			}
		}
	})
}
