package sim

import "math"

// Angle is a rotation in radians, normalized to (-Pi, Pi].
type Angle float64

// AngleFromDegrees creates Angle from degrees.
func AngleFromDegrees(d float64) Angle {
	return Angle(normalizeRadians(d * math.Pi / 180.0))
}

// AddDegrees adds degrees to current angle.
func (a Angle) AddDegrees(d float64) Angle {
	return Angle(normalizeRadians(float64(a) + d*math.Pi/180.0))
}

// Degrees gets angle in degrees.
func (a Angle) Degrees() float64 {
	return float64(a) * 180 / math.Pi
}

func normalizeRadians(r float64) float64 {
	if r >= 2*math.Pi || r <= -2*math.Pi {
		r = math.Remainder(r, 2*math.Pi)
	}
	if r > math.Pi {
		r -= 2 * math.Pi
	} else if r <= -math.Pi {
		r += 2 * math.Pi
	}
	return r
}

// Quaternion is a unit rotation quaternion.
type Quaternion struct {
	I, J, K, Real float64
}

// Yaw returns the rotation of a around the vertical axis.
func Yaw(a Angle) Quaternion {
	half := float64(a) / 2
	return Quaternion{K: math.Sin(half), Real: math.Cos(half)}
}

// Q14 encodes the quaternion in the Q14 fixed point format of rotation
// vector reports: i, j, k, real.
func (q Quaternion) Q14() [4]int16 {
	return [4]int16{qfixed(q.I), qfixed(q.J), qfixed(q.K), qfixed(q.Real)}
}

// FromQ14 decodes i, j, k, real from Q14 fixed point.
func FromQ14(v [4]int16) Quaternion {
	const one = 1 << 14
	return Quaternion{
		I:    float64(v[0]) / one,
		J:    float64(v[1]) / one,
		K:    float64(v[2]) / one,
		Real: float64(v[3]) / one,
	}
}

func qfixed(v float64) int16 {
	scaled := math.Round(v * (1 << 14))
	if scaled > math.MaxInt16 {
		scaled = math.MaxInt16
	} else if scaled < math.MinInt16 {
		scaled = math.MinInt16
	}
	return int16(scaled)
}
