package policy

import "testing"

func TestForCreateIsStrictest(t *testing.T) {
	p := ForCreate()

	if !p.RequireUserPresence {
		t.Error("default policy must require user presence")
	}
	if p.Scope != ScopeWhenPasscodeSet {
		t.Errorf("expected %s, got %s", ScopeWhenPasscodeSet, p.Scope)
	}
	if p.Synchronizable {
		t.Error("default policy must not be synchronizable")
	}
}
