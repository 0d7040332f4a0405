package benchmark

// Set is the benchmark file schema loaded from JSON or YAML.
type Set struct {
	Version int    `json:"version" yaml:"version"`
	Items   []Item `json:"items" yaml:"items"`
}

// Item is a fixed question and the facts a correct answer must contain.
// The question text is the item's identity.
type Item struct {
	Question      string   `json:"question" yaml:"question"`
	RequiredFacts []string `json:"required_facts" yaml:"required_facts"`
}

// FactCount returns the total number of required facts across items.
func FactCount(items []Item) int {
	total := 0
	for _, item := range items {
		total += len(item.RequiredFacts)
	}
	return total
}
