package assets

import "testing"

func TestIsSupported(t *testing.T) {
	for _, id := range []string{NYXT, ECHO, USDX} {
		if !IsSupported(id) {
			t.Fatalf("IsSupported(%q) = false, want true", id)
		}
	}
	if IsSupported("DOGE") {
		t.Fatalf("IsSupported(DOGE) = true, want false")
	}
	if IsSupported("") {
		t.Fatalf("IsSupported(\"\") = true, want false")
	}
}

func TestAllContainsEveryAsset(t *testing.T) {
	all := All()
	if len(all) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(all))
	}
	for _, id := range []string{NYXT, ECHO, USDX} {
		found := false
		for _, a := range all {
			if a == id {
				found = true
			}
		}
		if !found {
			t.Fatalf("All() missing %q", id)
		}
	}
}
