package blur

import "fmt"

const (
	// MaxRadius is the largest accepted blur radius.
	MaxRadius = 25.0

	DefaultScaleFactor = 0.3
	DefaultRadius      = 15.0
)

// Parameters controls a single blur: ScaleFactor in (0, 1] trades quality for
// speed, Radius in (0, 25] sets the blur strength.
type Parameters struct {
	ScaleFactor float64 `json:"scale_factor"`
	Radius      float64 `json:"radius"`
}

func DefaultParameters() Parameters {
	return Parameters{ScaleFactor: DefaultScaleFactor, Radius: DefaultRadius}
}

// Validate rejects out-of-range values, NaN included.
func (p Parameters) Validate() error {
	if !(p.ScaleFactor > 0 && p.ScaleFactor <= 1) {
		return fmt.Errorf("%w: scale factor %v outside (0, 1]", ErrInvalidParameter, p.ScaleFactor)
	}
	if !(p.Radius > 0 && p.Radius <= MaxRadius) {
		return fmt.Errorf("%w: radius %v outside (0, %v]", ErrInvalidParameter, p.Radius, MaxRadius)
	}
	return nil
}
