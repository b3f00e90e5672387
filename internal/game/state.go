package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/politicalpower/power-server-go/internal/game/rules"
)

// Player is a participant in one game. Players are never removed while
// the game exists; disconnection only flips IsConnected.
type Player struct {
	UserID        string   `json:"userId"`
	Username      string   `json:"username"`
	Hand          []string `json:"hand"`
	PlayedCardIDs []string `json:"playedCardIds"`
	Mandates      int      `json:"mandates"`
	Influence     int      `json:"influence"` // per-round accumulator
	LastRoll      int      `json:"lastRoll"`  // 0 = not rolled this round
	HasActed      bool     `json:"hasActed"`  // took their play-phase turn
	IsReady       bool     `json:"isReady"`
	IsConnected   bool     `json:"isConnected"`
}

func (p *Player) clone() *Player {
	cp := *p
	cp.Hand = append([]string(nil), p.Hand...)
	cp.PlayedCardIDs = append([]string(nil), p.PlayedCardIDs...)
	return &cp
}

func (p *Player) holdsCard(cardID string) bool {
	for _, id := range p.Hand {
		if id == cardID {
			return true
		}
	}
	return false
}

func (p *Player) removeFromHand(cardID string) bool {
	for i, id := range p.Hand {
		if id == cardID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// Coalition is a two-player alliance. Broken coalitions are deactivated,
// never deleted, so the history stays available to the log.
type Coalition struct {
	Player1ID   string `json:"player1Id"`
	Player2ID   string `json:"player2Id"`
	RoundFormed int    `json:"roundFormed"`
	Active      bool   `json:"active"`
}

// Includes reports whether the coalition contains the given player.
func (c Coalition) Includes(playerID string) bool {
	return c.Player1ID == playerID || c.Player2ID == playerID
}

// Partner returns the other member of the coalition.
func (c Coalition) Partner(playerID string) string {
	if c.Player1ID == playerID {
		return c.Player2ID
	}
	return c.Player1ID
}

// CenterCard is one entry in the per-round staging area: a card committed
// during PLAY, face down until REVEAL. Position records play order, which
// breaks ties within an effect-priority tier.
type CenterCard struct {
	PlayerID string `json:"playerId"`
	CardID   string `json:"cardId"`
	Revealed bool   `json:"revealed"`
	Position int    `json:"position"`
}

// LogEntry is one append-only game log record.
type LogEntry struct {
	ID        string    `json:"id"`
	Round     int       `json:"round"`
	PlayerID  string    `json:"playerId,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// GameState is the single root aggregate for one game. It is owned by the
// engine; everything handed to other components is a deep-copied snapshot,
// so a broadcast state can never be torn by a later transition.
type GameState struct {
	GameID           string              `json:"gameId"`
	Name             string              `json:"name"`
	Status           rules.Status        `json:"status"`
	Phase            rules.Phase         `json:"phase"`
	Players          []*Player           `json:"players"`
	ActivePlayerID   string              `json:"activePlayerId"`
	Round            int                 `json:"round"`
	MaxRounds        int                 `json:"maxRounds"`
	MaxPlayers       int                 `json:"maxPlayers"`
	MandateThreshold int                 `json:"mandateThreshold"`
	MomentumLevel    int                 `json:"momentumLevel"`
	Coalitions       []Coalition         `json:"coalitions"`
	PendingProposals map[string]string   `json:"pendingProposals"` // target -> proposer
	CenterCards      []*CenterCard       `json:"centerCards"`
	Deck             Deck                `json:"deck"`
	Log              []LogEntry          `json:"log"`
	BlockCoalitions  bool                `json:"blockCoalitions"` // round-scoped
	WinnerIDs        []string            `json:"winnerIds,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
}

// Clone returns a deep copy of the state.
func (g *GameState) Clone() *GameState {
	cp := *g
	cp.Players = make([]*Player, len(g.Players))
	for i, p := range g.Players {
		cp.Players[i] = p.clone()
	}
	cp.Coalitions = append([]Coalition(nil), g.Coalitions...)
	cp.PendingProposals = make(map[string]string, len(g.PendingProposals))
	for k, v := range g.PendingProposals {
		cp.PendingProposals[k] = v
	}
	cp.CenterCards = make([]*CenterCard, len(g.CenterCards))
	for i, cc := range g.CenterCards {
		c := *cc
		cp.CenterCards[i] = &c
	}
	cp.Deck = g.Deck.Clone()
	cp.Log = append([]LogEntry(nil), g.Log...)
	cp.WinnerIDs = append([]string(nil), g.WinnerIDs...)
	return &cp
}

// Player returns the player with the given id.
func (g *GameState) Player(userID string) (*Player, bool) {
	for _, p := range g.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return nil, false
}

func (g *GameState) playerIndex(userID string) int {
	for i, p := range g.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// ActiveCoalition returns the active coalition containing the player, if
// any. At most one exists per player at a time.
func (g *GameState) ActiveCoalition(playerID string) (Coalition, bool) {
	for _, c := range g.Coalitions {
		if c.Active && c.Includes(playerID) {
			return c, true
		}
	}
	return Coalition{}, false
}

// HasActiveCoalition reports whether any coalition is currently active.
func (g *GameState) HasActiveCoalition() bool {
	for _, c := range g.Coalitions {
		if c.Active {
			return true
		}
	}
	return false
}

func (g *GameState) centerCard(playerID string) (*CenterCard, bool) {
	for _, cc := range g.CenterCards {
		if cc.PlayerID == playerID {
			return cc, true
		}
	}
	return nil, false
}

func (g *GameState) appendLog(playerID, message string) {
	g.Log = append(g.Log, LogEntry{
		ID:        uuid.NewString(),
		Round:     g.Round,
		PlayerID:  playerID,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
