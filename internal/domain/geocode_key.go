package domain

import "strings"

// GeocodeKey identifies a rider-typed address within the country the search
// was bounded to. The same text in two countries is two entries.
type GeocodeKey struct {
	Country string
	Address string
}

// NewGeocodeKey folds case and whitespace so "1  main st" and "1 Main St"
// share an entry. Country is an ISO code and may be empty for unbounded
// searches.
func NewGeocodeKey(country, address string) GeocodeKey {
	return GeocodeKey{
		Country: strings.ToUpper(strings.TrimSpace(country)),
		Address: strings.ToLower(strings.Join(strings.Fields(address), " ")),
	}
}

func (k GeocodeKey) Empty() bool { return k.Address == "" }

func (k GeocodeKey) String() string {
	if k.Country == "" {
		return k.Address
	}
	return k.Country + ":" + k.Address
}
