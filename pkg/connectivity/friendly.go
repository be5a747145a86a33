package connectivity

// Friendly identities give opaque peer IDs a stable human-readable alias
// ("Brave Otter") and an accent color for display. The derivation is pure
// and deterministic: the same peer ID always maps to the same identity, on
// every node, with no shared state. It carries no security meaning.

// FriendlyIdentity is the display identity derived from a peer ID.
type FriendlyIdentity struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

var friendlyAdjectives = []string{
	"Amber", "Bold", "Brave", "Bright", "Calm", "Clever", "Cosmic",
	"Crimson", "Curious", "Daring", "Eager", "Fearless", "Gentle", "Golden",
	"Happy", "Hidden", "Humble", "Jolly", "Keen", "Lively", "Lucky",
	"Mellow", "Mighty", "Nimble", "Noble", "Patient", "Proud", "Quiet",
	"Rapid", "Silent", "Silver", "Sly", "Solar", "Steady", "Swift",
	"Tranquil", "Vivid", "Wandering", "Wild", "Witty",
}

var friendlyAnimals = []string{
	"Albatross", "Badger", "Bison", "Capercaillie", "Cheetah", "Condor",
	"Crane", "Dolphin", "Falcon", "Fox", "Gazelle", "Gecko", "Heron",
	"Ibex", "Jackal", "Kestrel", "Kingfisher", "Lemur", "Lynx", "Magpie",
	"Marmot", "Marten", "Mole", "Narwhal", "Ocelot", "Orca", "Osprey",
	"Otter", "Owl", "Panther", "Pelican", "Puffin", "Raven", "Salamander",
	"Seal", "Stoat", "Swift", "Tapir", "Walrus", "Wolverine",
}

var friendlyColors = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231", "#911eb4",
	"#46f0f0", "#f032e6", "#bcf60c", "#008080", "#9a6324", "#800000",
}

// FriendlyName derives the display name for a peer ID.
func FriendlyName(peerID string) string {
	h := nameHash(peerID)
	adjective := friendlyAdjectives[int(absInt64(int64(h))%int64(len(friendlyAdjectives)))]
	animal := friendlyAnimals[int(absInt64(int64(h>>8))%int64(len(friendlyAnimals)))]
	return adjective + " " + animal
}

// FriendlyColor derives the accent color for a peer ID.
func FriendlyColor(peerID string) string {
	h := colorHash(peerID)
	return friendlyColors[int(absInt64(h)%int64(len(friendlyColors)))]
}

// DeriveFriendlyIdentity derives both the name and the color.
func DeriveFriendlyIdentity(peerID string) FriendlyIdentity {
	return FriendlyIdentity{
		Name:  FriendlyName(peerID),
		Color: FriendlyColor(peerID),
	}
}

// nameHash accumulates hash*31 + char with 32-bit wraparound at every step.
func nameHash(s string) int32 {
	var h int32
	for _, c := range s {
		h = h<<5 - h + int32(c)
	}
	return h
}

// colorHash is the same recurrence accumulated in 64 bits. The name and
// color hashes deliberately use different overflow behavior so the two
// indices are independent; keep them that way or existing identities shift.
func colorHash(s string) int64 {
	var h int64
	for _, c := range s {
		h = int64(c) + (h<<5 - h)
	}
	return h
}

// absInt64 returns |v| as uint64-safe magnitude (handles MinInt64).
func absInt64(v int64) int64 {
	if v < 0 {
		v = -v
	}
	if v < 0 {
		// MinInt64 negates to itself; fold it into range.
		return 0
	}
	return v
}
