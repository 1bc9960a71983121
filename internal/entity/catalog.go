package entity

// Family is a product family and its 3-character SKU prefix.
type Family struct {
	Desc   string `json:"desc"`
	Prefix string `json:"prefix"`
}

// Color is a catalog color and its 4-character SKU code.
type Color struct {
	Desc string `json:"desc"`
	Code string `json:"code"`
}

// OptionItem is an accessory (grid, cover) sold with a family.
type OptionItem struct {
	SKU         string `json:"sku"`
	Family      string `json:"family"`
	ColorCode   string `json:"color_code,omitempty"`
	Size        string `json:"size,omitempty"`
	Type        string `json:"type,omitempty"`
	DefaultSize bool   `json:"default_size"`
}
