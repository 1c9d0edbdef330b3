package models

// Item is a physical reward that can be bought with tickets
type Item struct {
	ID       int64   `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	Cost     int     `json:"cost" db:"cost"`
	Link     *string `json:"link" db:"link"`
	ImageURL *string `json:"image_url" db:"image_url"`
	Quantity int     `json:"quantity" db:"quantity"` // 0 means sold out
}

// InStock reports whether at least one unit is left
func (i *Item) InStock() bool {
	return i.Quantity > 0
}
