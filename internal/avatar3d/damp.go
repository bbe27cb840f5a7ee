package avatar3d

import "math"

// Damp moves current toward target by the frame-rate independent factor
// 1 - e^(-lambda*dt).
func Damp(current, target, lambda, dt float64) float64 {
	if dt <= 0 || lambda <= 0 {
		return current
	}
	return current + (target-current)*(1-math.Exp(-lambda*dt))
}

// WrapAngle maps a radian angle into [-π, π).
func WrapAngle(a float64) float64 {
	return euclideanMod(a+math.Pi, 2*math.Pi) - math.Pi
}

// DampAngle damps along the shortest arc between current and target.
// The result is not re-wrapped so continuous rotations stay continuous.
func DampAngle(current, target, lambda, dt float64) float64 {
	delta := WrapAngle(target - current)
	return Damp(current, current+delta, lambda, dt)
}

func euclideanMod(n, m float64) float64 {
	return math.Mod(math.Mod(n, m)+m, m)
}

// DampedScalar is a value smoothed exponentially toward Target.
type DampedScalar struct {
	Current float64
	Target  float64
	Lambda  float64
}

func (d *DampedScalar) Step(dt float64) float64 {
	d.Current = Damp(d.Current, d.Target, d.Lambda, dt)
	return d.Current
}

// DampedAngle is a DampedScalar that takes the shortest rotational path.
type DampedAngle struct {
	Current float64
	Target  float64
	Lambda  float64
}

func (d *DampedAngle) Step(dt float64) float64 {
	d.Current = DampAngle(d.Current, d.Target, d.Lambda, dt)
	return d.Current
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
