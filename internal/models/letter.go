package models

// LetterBand maps a lower percentage threshold to a letter label.
type LetterBand struct {
	Threshold int    `db:"threshold" json:"threshold"`
	Letter    string `db:"letter" json:"letter"`
}

// LetterTable is the course letter scheme, sorted descending by threshold
// and contiguous down to zero. A table violating that is a configuration
// fault, not defensively repaired.
type LetterTable []LetterBand

// Contiguous reports whether the table is strictly descending and bottoms
// out at zero, covering the whole [0,100] range.
func (t LetterTable) Contiguous() bool {
	if len(t) == 0 {
		return false
	}
	prev := 101
	for _, band := range t {
		if band.Threshold >= prev || band.Threshold < 0 {
			return false
		}
		prev = band.Threshold
	}
	return t[len(t)-1].Threshold == 0
}
