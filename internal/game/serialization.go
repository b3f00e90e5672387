package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Checksum is a deterministic fingerprint of a game state. Two states with
// identical rules-relevant content produce the same hash regardless of map
// iteration order, log contents, or wall-clock timestamps, so snapshots can
// be compared across reconnects and persisted copies.
type Checksum struct {
	Hash    string `json:"hash"` // hex-encoded SHA-256
	Version int    `json:"version"`
}

const checksumVersion = 1

// ComputeChecksum hashes the canonical representation of the state.
func (g *GameState) ComputeChecksum() Checksum {
	sum := sha256.Sum256([]byte(g.canonical()))
	return Checksum{
		Hash:    hex.EncodeToString(sum[:]),
		Version: checksumVersion,
	}
}

// VerifyChecksum reports whether the state still matches the expected hash.
func (g *GameState) VerifyChecksum(expected Checksum) bool {
	return g.ComputeChecksum().Hash == expected.Hash
}

// canonical renders the rules-relevant state as a stable string. Excluded on
// purpose: the log (messages carry timestamps and uuids), CreatedAt, and
// per-entry timestamps. Included: everything a rules decision can read.
func (g *GameState) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%s|%s|%s|%d|%d|%d|%d|%d|%t\n",
		g.GameID,
		g.Status,
		g.Phase,
		g.ActivePlayerID,
		g.Round,
		g.MaxRounds,
		g.MaxPlayers,
		g.MandateThreshold,
		g.MomentumLevel,
		g.BlockCoalitions,
	)

	// Players in seat order; seat order is itself rules-relevant.
	for _, p := range g.Players {
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%d|%d|%d|%t|%t|%t\n",
			p.UserID,
			p.Username,
			p.Mandates,
			p.Influence,
			p.LastRoll,
			p.HasActed,
			p.IsReady,
			p.IsConnected,
		)
		fmt.Fprintf(&buf, "  HAND:%s\n", strings.Join(p.Hand, ","))
		fmt.Fprintf(&buf, "  PLAYED:%s\n", strings.Join(p.PlayedCardIDs, ","))
	}

	// Coalitions in formation order.
	for _, c := range g.Coalitions {
		fmt.Fprintf(&buf, "COALITION:%s|%s|%d|%t\n",
			c.Player1ID, c.Player2ID, c.RoundFormed, c.Active)
	}

	// Pending proposals are a map; sort by target for determinism.
	targets := make([]string, 0, len(g.PendingProposals))
	for target := range g.PendingProposals {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	for _, target := range targets {
		fmt.Fprintf(&buf, "PROPOSAL:%s<-%s\n", target, g.PendingProposals[target])
	}

	// Center cards by position; play order matters at reveal.
	for _, cc := range g.CenterCards {
		fmt.Fprintf(&buf, "CENTER:%d|%s|%s|%t\n",
			cc.Position, cc.PlayerID, cc.CardID, cc.Revealed)
	}

	// Pile order matters: the draw pile top decides the next draw.
	fmt.Fprintf(&buf, "DRAW:%s\n", strings.Join(g.Deck.DrawPile, ","))
	fmt.Fprintf(&buf, "DISCARD:%s\n", strings.Join(g.Deck.DiscardPile, ","))

	fmt.Fprintf(&buf, "WINNERS:%s\n", strings.Join(g.WinnerIDs, ","))

	return buf.String()
}
