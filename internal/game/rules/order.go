package rules

// TurnOrder tracks the active player within a fixed round-robin player
// order. Advancing past the last player wraps to the first and reports
// the wrap, which phase logic uses as the "everyone has acted" signal.
type TurnOrder struct {
	order []string
	index int
}

// NewTurnOrder creates a turn order over the given player ids, starting
// at startIndex.
func NewTurnOrder(playerIDs []string, startIndex int) *TurnOrder {
	ids := make([]string, len(playerIDs))
	copy(ids, playerIDs)
	if startIndex < 0 || startIndex >= len(ids) {
		startIndex = 0
	}
	return &TurnOrder{order: ids, index: startIndex}
}

// Active returns the player whose turn it is. Empty when the order holds
// no players.
func (to *TurnOrder) Active() string {
	if len(to.order) == 0 {
		return ""
	}
	return to.order[to.index]
}

// Advance moves to the next player and reports whether the order wrapped
// back to its first player.
func (to *TurnOrder) Advance() (next string, wrapped bool) {
	if len(to.order) == 0 {
		return "", false
	}
	to.index = (to.index + 1) % len(to.order)
	return to.order[to.index], to.index == 0
}

// Reset returns the active player to the first player in the order.
func (to *TurnOrder) Reset() {
	to.index = 0
}

// Len returns the number of players in the order.
func (to *TurnOrder) Len() int {
	return len(to.order)
}

// Index returns the position of the given player, or -1.
func (to *TurnOrder) Index(playerID string) int {
	for i, id := range to.order {
		if id == playerID {
			return i
		}
	}
	return -1
}
