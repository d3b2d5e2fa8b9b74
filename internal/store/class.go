package store

// Class selects which keychain item class entries are stored under.
// Source variants disagree on generic vs internet passwords; it is a
// configuration choice, not resolved here.
type Class string

const (
	// ClassGeneric stores entries as generic passwords (the default).
	ClassGeneric Class = "generic"
	// ClassInternet stores entries as internet passwords.
	ClassInternet Class = "internet"
)
