package policy

// LCG is the linear congruential generator behind SJF admission. It is not
// goroutine safe; callers hold the process table lock.
type LCG struct {
	seed uint32
}

// NewLCG creates a generator with the given seed.
func NewLCG(seed uint32) *LCG {
	return &LCG{seed: seed}
}

// Next advances the generator.
func (g *LCG) Next() uint32 {
	g.seed = (1103515245*g.seed + 12345) & 0x7FFFFFFF
	return g.seed
}

// Percent returns the next draw in 0..99.
func (g *LCG) Percent() int {
	return int(g.Next() % 100)
}
