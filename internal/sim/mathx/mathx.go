// Package mathx holds the deterministic hash and integer helpers shared by
// the phase ledgers. Simulation logic must never reach for wall-clock or
// thread-local entropy; every pseudo-random choice derives from these
// hashes, seeded only by (tick, entity id, purpose tag).
package mathx

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func fold(s string) uint64 {
	var h uint64 = 0xcbf29ce484222325
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 0x100000001b3
	}
	return h
}

// Roll returns a stable pseudo-random value for the (tick, entity, purpose)
// triple. The same triple yields the same value in every run.
func Roll(tick uint64, entity, purpose string) uint64 {
	v := tick*0x9e3779b97f4a7c15 ^ fold(entity)*0xbf58476d1ce4e5b9 ^ fold(purpose)*0xc2b2ae3d27d4eb4f
	return mix64(v)
}

// Pick selects an index in [0, n) from a roll.
func Pick(roll uint64, n int) int {
	if n <= 0 {
		return 0
	}
	return int(roll % uint64(n))
}

func MinI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func AbsI64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
