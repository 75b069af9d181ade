package interferometry

// AntennaPair identifies the two antennas that form a baseline.
type AntennaPair struct {
	I int `json:"i" msgpack:"i"`
	J int `json:"j" msgpack:"j"`
}

// Baseline is the vector between two meridian-rotated antenna positions.
type Baseline struct {
	Vector Vec3
	Pair   AntennaPair
}

// BaselineCount returns n(n-1)/2, the number of unique pairs of n antennas.
func BaselineCount(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// FormBaselines enumerates every unordered antenna pair (i<j) in row-major
// upper-triangle order: (0,1), (0,2), ..., (0,n-1), (1,2), ...
// Each baseline vector is position[i] - position[j].
func FormBaselines(rotated []Vec3) []Baseline {
	n := len(rotated)
	baselines := make([]Baseline, 0, BaselineCount(n))
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			baselines = append(baselines, Baseline{
				Vector: rotated[i].Sub(rotated[j]),
				Pair:   AntennaPair{I: i, J: j},
			})
		}
	}
	return baselines
}
