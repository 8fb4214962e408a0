package models

// Trade is a single print from the realtime market stream.
type Trade struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"` // unix seconds
}
