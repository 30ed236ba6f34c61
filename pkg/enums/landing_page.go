package enums

import "fmt"

// LandingPage selects which hosted-page variant the shopper lands on.
type LandingPage string

const (
	// LandingPageBilling opens the card entry form first.
	LandingPageBilling LandingPage = "Billing"
	// LandingPageLogin opens the processor login form first.
	LandingPageLogin LandingPage = "Login"
)

var validLandingPages = []LandingPage{
	LandingPageBilling,
	LandingPageLogin,
}

// String implements fmt.Stringer.
func (l LandingPage) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LandingPage.
func (l LandingPage) IsValid() bool {
	for _, candidate := range validLandingPages {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLandingPage converts raw input into a LandingPage.
func ParseLandingPage(value string) (LandingPage, error) {
	for _, candidate := range validLandingPages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid landing page %q", value)
}
