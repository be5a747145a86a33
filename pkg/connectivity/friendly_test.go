package connectivity

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestFriendlyNameDeterministic(t *testing.T) {
	ids := []string{
		"QmcgpsyWgH8Y8ajJz1Cu72KnS5uo2Aa2LpzU7kinSupNKC",
		"12D3KooWExample",
		"",
		"a",
	}
	for _, id := range ids {
		first := FriendlyName(id)
		second := FriendlyName(id)
		if first != second {
			t.Errorf("FriendlyName(%q) unstable: %q then %q", id, first, second)
		}
	}
}

func TestFriendlyIdentityShape(t *testing.T) {
	identity := DeriveFriendlyIdentity("QmcgpsyWgH8Y8ajJz1Cu72KnS5uo2Aa2LpzU7kinSupNKC")

	parts := strings.SplitN(identity.Name, " ", 2)
	if len(parts) != 2 {
		t.Fatalf("name %q is not adjective + animal", identity.Name)
	}
	if !contains(friendlyAdjectives, parts[0]) {
		t.Errorf("adjective %q not in word list", parts[0])
	}
	if !contains(friendlyAnimals, parts[1]) {
		t.Errorf("animal %q not in word list", parts[1])
	}
	if !contains(friendlyColors, identity.Color) {
		t.Errorf("color %q not in palette", identity.Color)
	}
}

func TestFriendlyNameSpreads(t *testing.T) {
	// 100 distinct inputs must not collapse to a single name.
	seen := make(map[string]struct{})
	base := "12D3KooWQYhTNQdmr3ArTeUHRYzFg94BKyTkoWBDWez9kSCVe2X"
	for i := 0; i < 100; i++ {
		id := base + string(rune('a'+i%26)) + string(rune('0'+i/26))
		seen[FriendlyName(id)] = struct{}{}
	}
	if len(seen) < 2 {
		t.Errorf("100 inputs produced %d distinct names", len(seen))
	}
}

func TestFriendlyIdentityProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.String().Draw(t, "peerID")

		identity := DeriveFriendlyIdentity(id)
		if identity != DeriveFriendlyIdentity(id) {
			t.Fatalf("identity for %q is not deterministic", id)
		}

		parts := strings.SplitN(identity.Name, " ", 2)
		if len(parts) != 2 || !contains(friendlyAdjectives, parts[0]) || !contains(friendlyAnimals, parts[1]) {
			t.Fatalf("name %q not drawn from the word lists", identity.Name)
		}
		if !contains(friendlyColors, identity.Color) {
			t.Fatalf("color %q not drawn from the palette", identity.Color)
		}
	})
}

func TestAbsInt64MinValue(t *testing.T) {
	// -2^63 has no positive counterpart; it must still map into range.
	if got := absInt64(-1 << 63); got < 0 {
		t.Errorf("absInt64(MinInt64) = %d, want non-negative", got)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
