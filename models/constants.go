package models

// Firestore collection names
const (
	CollectionItems    = "items"
	CollectionRequests = "requests"
	CollectionUsers    = "users"
)

// Item categories. CategoryAll is a filter sentinel, not a storable category.
const (
	CategoryAll         = "All"
	CategoryTools       = "Tools"
	CategorySports      = "Sports"
	CategoryOutdoor     = "Outdoor"
	CategoryElectronics = "Electronics"
	CategoryOther       = "Other"
)

// Categories lists the categories an item can be stored under.
var Categories = []string{
	CategoryTools,
	CategorySports,
	CategoryOutdoor,
	CategoryElectronics,
	CategoryOther,
}

// Pricing types
const (
	PricingPerDay  = "day"
	PricingPerHour = "hour"
)

// HoursPerDay converts hourly rates to whole-day borrow spans.
const HoursPerDay = 24

// Account types
const (
	UserTypeBorrower = "borrower"
	UserTypeLender   = "lender"
	UserTypeBoth     = "both"
)

// ValidCategory reports whether c is a storable item category.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ValidUserType reports whether t is a known account type.
func ValidUserType(t string) bool {
	return t == UserTypeBorrower || t == UserTypeLender || t == UserTypeBoth
}
