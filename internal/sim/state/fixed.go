package state

// Milli is the fixed-point unit used by all simulation arithmetic.
// One logical unit is 1000 Milli. Phase logic never touches floats so
// that any per-entity work stays bit-exact across runs and platforms.
type Milli int64

const One Milli = 1000

// MulPermille scales v by p/1000, truncating toward zero.
func MulPermille(v Milli, p int64) Milli {
	return Milli(int64(v) * p / 1000)
}

// Ratio returns num/den in permille, clamped to [0, 1000].
// A zero denominator reports full coverage.
func Ratio(num, den Milli) int64 {
	if den <= 0 {
		return 1000
	}
	r := int64(num) * 1000 / int64(den)
	return ClampPermille(r)
}

func ClampPermille(p int64) int64 {
	if p < 0 {
		return 0
	}
	if p > 1000 {
		return 1000
	}
	return p
}

func MinMilli(a, b Milli) Milli {
	if a < b {
		return a
	}
	return b
}

func MaxMilli(a, b Milli) Milli {
	if a > b {
		return a
	}
	return b
}

func (m Milli) Float() float64 {
	return float64(m) / 1000
}
