package model

// StockError describes one cart line that cannot be fulfilled.
type StockError struct {
	ProductID uint   `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available *int   `json:"available,omitempty"`
	Message   string `json:"message"`
}
