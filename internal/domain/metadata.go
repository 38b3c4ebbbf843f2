package domain

// MetadataValidation is the advisory result of a metadata accessibility check.
// Computed on demand, not persisted.
type MetadataValidation struct {
	URI             string   `json:"uri"`
	Valid           bool     `json:"valid"`
	Reason          string   `json:"reason,omitempty"`
	AccessibleVia   string   `json:"accessibleVia,omitempty"`
	CheckedGateways []string `json:"checkedGateways,omitempty"`
}
