package entity

import "strings"

// Address is a known delivery address of a customer.
type Address struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Street     string `json:"street"`
	PostCode   string `json:"post_code"`
	City       string `json:"city"`
	Province   string `json:"province"`
}

// Format renders the address as "street, postcode, city, province", skipping empty parts.
func (a Address) Format() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.PostCode, a.City, a.Province} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
