package types

// PriceLevel is a single resting level on a Polymarket book as it appears on
// the wire. Prices and sizes are decimal strings; they are parsed to floats
// only at calculation boundaries, never for map lookups.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
