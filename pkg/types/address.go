package types

import "strings"

// Address is the ship-to snapshot stored on an order.
type Address struct {
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Street1    string  `json:"street1"`
	Street2    *string `json:"street2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// FullName joins the name parts the way the hosted page displays them.
func (a Address) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}
