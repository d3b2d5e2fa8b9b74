// Package policy selects the access-control policy attached to a secret
// at creation time.
//
// The store applies a policy only when an item is added; updating an
// existing entry never changes its policy. Changing the policy of an
// existing secret requires delete + recreate.
package policy

// Scope restricts when a stored secret is readable at all.
type Scope string

const (
	// ScopeWhenPasscodeSet makes the secret readable only while the
	// device has a passcode configured, and never on another device.
	ScopeWhenPasscodeSet Scope = "whenPasscodeSetThisDeviceOnly"
	// ScopeWhenUnlocked makes the secret readable whenever the device
	// is unlocked, and never on another device.
	ScopeWhenUnlocked Scope = "whenUnlockedThisDeviceOnly"
)

// AccessPolicy is the access-control configuration attached when a
// secret is created.
type AccessPolicy struct {
	// RequireUserPresence gates reads behind a live device-owner
	// authentication challenge.
	RequireUserPresence bool
	// Scope restricts availability of the stored secret.
	Scope Scope
	// Synchronizable allows export to other devices (cloud sync).
	Synchronizable bool
}

// ForCreate returns the policy attached to new secrets: the strictest
// available. User presence required, readable only while a passcode is
// set, never exported off the device. Callers wanting anything weaker
// must opt out explicitly.
func ForCreate() AccessPolicy {
	return AccessPolicy{
		RequireUserPresence: true,
		Scope:               ScopeWhenPasscodeSet,
		Synchronizable:      false,
	}
}
