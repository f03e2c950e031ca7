// Package domain contains the core entities of the review tool: cards, the
// ordered card set that is persisted as one unit, and the integrity tag that
// identifies a persisted snapshot. It is independent of any storage medium
// or delivery mechanism.
//
// Cards have no identifier of their own. A card is addressed by its position
// in the set, so insertion order is preserved by every operation here.
package domain
