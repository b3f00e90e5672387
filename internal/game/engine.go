package game

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/politicalpower/power-server-go/internal/card"
	"github.com/politicalpower/power-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// ActionType enumerates the in-game actions a client may submit.
type ActionType string

const (
	ActionDrawCard         ActionType = "DRAW_CARD"
	ActionPlayCard         ActionType = "PLAY_CARD"
	ActionEndTurn          ActionType = "END_TURN"
	ActionProcessPhase     ActionType = "PROCESS_PHASE"
	ActionRevealCard       ActionType = "REVEAL_CARD"
	ActionRollDice         ActionType = "ROLL_DICE"
	ActionProposeCoalition ActionType = "PROPOSE_COALITION"
	ActionAcceptCoalition  ActionType = "ACCEPT_COALITION"
	ActionDeclineCoalition ActionType = "DECLINE_COALITION"
)

// Action is one player intent submitted to the engine.
type Action struct {
	Type     ActionType `json:"type"`
	PlayerID string     `json:"playerId"`
	CardID   string     `json:"cardId,omitempty"`
	TargetID string     `json:"targetId,omitempty"` // coalition partner
}

// Settings carries game-creation defaults from configuration.
type Settings struct {
	MaxPlayers       int
	MaxRounds        int
	MandateThreshold int
	InitialHandSize  int
}

// DefaultSettings returns the standard rule set.
func DefaultSettings() Settings {
	return Settings{
		MaxPlayers:       4,
		MaxRounds:        10,
		MandateThreshold: 5,
		InitialHandSize:  5,
	}
}

// PlayerSeed identifies a player supplied at game creation.
type PlayerSeed struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// CreateParams configures a new game. Zero values fall back to the
// engine's settings; an empty DeckCardIDs plays with the full catalog.
type CreateParams struct {
	Name             string       `json:"name"`
	MaxPlayers       int          `json:"maxPlayers"`
	MaxRounds        int          `json:"maxRounds"`
	MandateThreshold int          `json:"mandateThreshold"`
	DeckCardIDs      []string     `json:"deckCardIds"`
	Players          []PlayerSeed `json:"players"`
}

// DiceFunc produces one die face, 1 through 6. Tests inject scripted
// dice; production uses the per-game RNG.
type DiceFunc func() int

// Options tune engine randomness.
type Options struct {
	Seed int64    // 0 = time-seeded
	Dice DiceFunc // nil = RNG dice
}

// Engine owns the authoritative state of every game. Each game id maps
// to an independent state value guarded by its own lock; actions against
// one game are serialized, and every state returned to a caller is a deep
// copy, so callers can never observe or cause a torn update.
type Engine struct {
	logger   *zap.Logger
	catalog  *card.Catalog
	settings Settings
	resolver *EffectResolver
	bus      *rules.EventBus

	mu    sync.RWMutex
	games map[string]*gameEntry

	seed seedSource
	dice DiceFunc
}

type gameEntry struct {
	mu    sync.Mutex
	state *GameState
	rng   *rand.Rand
	dice  DiceFunc
}

// seedSource hands every game its own deterministic RNG seed.
type seedSource struct {
	mu   sync.Mutex
	next int64
}

func (s *seedSource) take() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// NewEngine creates the engine with the given catalog and rule defaults.
func NewEngine(catalog *card.Catalog, settings Settings, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		logger:   logger,
		catalog:  catalog,
		settings: settings,
		resolver: NewEffectResolver(logger),
		bus:      rules.NewEventBus(),
		games:    make(map[string]*gameEntry),
		seed:     seedSource{next: seed},
		dice:     opts.Dice,
	}
}

// Bus exposes the engine's event stream for the relay to subscribe to.
func (e *Engine) Bus() *rules.EventBus {
	return e.bus
}

// CreateGame registers a new game in the lobby phase.
func (e *Engine) CreateGame(p CreateParams) (*GameState, error) {
	deckIDs := p.DeckCardIDs
	if len(deckIDs) == 0 {
		deckIDs = e.catalog.IDs()
	}
	for _, id := range deckIDs {
		if !e.catalog.Has(id) {
			return nil, fmt.Errorf("%w: deck references %s", card.ErrUnknownCard, id)
		}
	}

	rng := rand.New(rand.NewSource(e.seed.take()))
	dice := e.dice
	if dice == nil {
		dice = func() int { return rng.Intn(6) + 1 }
	}

	g := &GameState{
		GameID:           uuid.NewString(),
		Name:             p.Name,
		Status:           rules.StatusLobby,
		Phase:            rules.PhaseLobby,
		Round:            0,
		MaxRounds:        orDefault(p.MaxRounds, e.settings.MaxRounds),
		MaxPlayers:       orDefault(p.MaxPlayers, e.settings.MaxPlayers),
		MandateThreshold: orDefault(p.MandateThreshold, e.settings.MandateThreshold),
		MomentumLevel:    1,
		PendingProposals: make(map[string]string),
		Deck:             NewDeck(deckIDs, rng),
		CreatedAt:        time.Now().UTC(),
	}
	for _, seed := range p.Players {
		g.Players = append(g.Players, &Player{
			UserID:      seed.UserID,
			Username:    seed.Username,
			Hand:        []string{},
			IsReady:     true,
			IsConnected: true,
		})
	}
	g.appendLog("", fmt.Sprintf("game %q created", p.Name))

	entry := &gameEntry{state: g, rng: rng, dice: dice}
	e.mu.Lock()
	e.games[g.GameID] = entry
	e.mu.Unlock()

	e.logger.Info("game created",
		zap.String("game_id", g.GameID),
		zap.String("name", p.Name),
		zap.Int("deck_size", len(deckIDs)),
	)
	return g.Clone(), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (e *Engine) entry(gameID string) (*gameEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return entry, nil
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot(gameID string) (*GameState, error) {
	entry, err := e.entry(gameID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state.Clone(), nil
}

// Join adds a player to a game still in the lobby.
func (e *Engine) Join(gameID, userID, username string) (*GameState, error) {
	entry, err := e.entry(gameID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	g := entry.state

	if g.Status != rules.StatusLobby {
		return nil, ErrInvalidPhase
	}
	if _, exists := g.Player(userID); exists {
		return nil, ErrAlreadyJoined
	}
	if len(g.Players) >= g.MaxPlayers {
		return nil, ErrGameFull
	}

	g.Players = append(g.Players, &Player{
		UserID:      userID,
		Username:    username,
		Hand:        []string{},
		IsReady:     true,
		IsConnected: true,
	})
	g.appendLog(userID, fmt.Sprintf("%s joined the game", username))
	e.bus.Publish(rules.NewEvent(rules.EventPlayerJoined, gameID, userID))
	return g.Clone(), nil
}

// Leave removes a player from a lobby, or marks them disconnected once
// the game is running (players are never deleted from an active game).
func (e *Engine) Leave(gameID, userID string) (*GameState, error) {
	entry, err := e.entry(gameID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	g := entry.state

	idx := g.playerIndex(userID)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}
	if g.Status == rules.StatusLobby {
		username := g.Players[idx].Username
		g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
		g.appendLog(userID, fmt.Sprintf("%s left the game", username))
	} else {
		g.Players[idx].IsConnected = false
		g.appendLog(userID, fmt.Sprintf("%s left the game", g.Players[idx].Username))
	}
	e.bus.Publish(rules.NewEvent(rules.EventPlayerLeft, gameID, userID))
	return g.Clone(), nil
}

// SetReady flips a lobby player's ready flag.
func (e *Engine) SetReady(gameID, userID string, ready bool) (*GameState, error) {
	entry, err := e.entry(gameID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	g := entry.state

	p, ok := g.Player(userID)
	if !ok {
		return nil, ErrPlayerNotFound
	}
	p.IsReady = ready
	e.bus.Publish(rules.NewEvent(rules.EventPlayerReady, gameID, userID))
	return g.Clone(), nil
}

// Start begins the game: requires at least two ready players, picks the
// first player deterministically (join order), and deals opening hands.
func (e *Engine) Start(gameID string) (*GameState, error) {
	entry, err := e.entry(gameID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	g := entry.state

	if g.Status != rules.StatusLobby {
		return nil, ErrInvalidPhase
	}
	ready := 0
	for _, p := range g.Players {
		if p.IsReady {
			ready++
		}
	}
	if ready < 2 {
		return nil, ErrInsufficientPlayers
	}

	g.Status = rules.StatusActive
	g.Round = 1
	g.ActivePlayerID = g.Players[0].UserID
	g.appendLog("", "the game begins")
	e.bus.Publish(rules.NewEvent(rules.EventGameStarted, gameID, ""))

	e.runSetup(entry)

	e.logger.Info("game started",
		zap.String("game_id", gameID),
		zap.Int("players", len(g.Players)),
	)
	return g.Clone(), nil
}

// runSetup deals opening hands to players lacking one and advances to
// PLAY. Called with the game lock held.
func (e *Engine) runSetup(entry *gameEntry) {
	g := entry.state
	e.setPhase(g, rules.PhaseSetup)

	for _, p := range g.Players {
		if len(p.Hand) > 0 {
			continue
		}
		drawn := g.Deck.Draw(e.settings.InitialHandSize, entry.rng)
		p.Hand = append(p.Hand, drawn...)
		g.appendLog(p.UserID, fmt.Sprintf("%s is dealt %d cards", p.Username, len(drawn)))
		ev := rules.NewEvent(rules.EventCardsDealt, g.GameID, p.UserID)
		ev.Amount = len(drawn)
		e.bus.Publish(ev)
	}

	e.setPhase(g, rules.PhasePlay)
}

func (e *Engine) setPhase(g *GameState, phase rules.Phase) {
	g.Phase = phase
	ev := rules.NewEvent(rules.EventPhaseChanged, g.GameID, "")
	ev.Data = phase.String()
	e.bus.Publish(ev)
}

// Apply validates and executes one action. Illegal actions return a
// rejection and leave the state untouched; the machine never partially
// applies a transition.
func (e *Engine) Apply(gameID string, act Action) (*GameState, error) {
	entry, err := e.entry(gameID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	g := entry.state

	if g.Phase.Terminal() {
		return nil, ErrGameFinished
	}
	if _, ok := g.Player(act.PlayerID); !ok {
		return nil, ErrPlayerNotFound
	}

	switch act.Type {
	case ActionPlayCard:
		err = e.playCard(entry, act.PlayerID, act.CardID)
	case ActionDrawCard:
		err = e.drawCard(entry, act.PlayerID)
	case ActionEndTurn:
		err = e.endTurn(entry, act.PlayerID)
	case ActionRevealCard:
		err = e.revealCard(entry, act.PlayerID)
	case ActionProcessPhase:
		err = e.processPhase(entry, act.PlayerID)
	case ActionRollDice:
		err = e.rollDice(entry, act.PlayerID)
	case ActionProposeCoalition:
		err = e.proposeCoalition(entry, act.PlayerID, act.TargetID)
	case ActionAcceptCoalition:
		err = e.acceptCoalition(entry, act.PlayerID)
	case ActionDeclineCoalition:
		err = e.declineCoalition(entry, act.PlayerID)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownAction, act.Type)
	}
	if err != nil {
		return nil, err
	}
	return g.Clone(), nil
}

// requireTurn checks phase and turn legality for turn-gated actions.
func requireTurn(g *GameState, phase rules.Phase, playerID string) error {
	if g.Phase != phase {
		return ErrInvalidPhase
	}
	if g.ActivePlayerID != playerID {
		return ErrNotYourTurn
	}
	return nil
}

// advanceActive rotates the active player round-robin and reports whether
// the rotation wrapped back to the first player.
func (g *GameState) advanceActive() bool {
	order := make([]string, len(g.Players))
	for i, p := range g.Players {
		order[i] = p.UserID
	}
	to := rules.NewTurnOrder(order, g.playerIndex(g.ActivePlayerID))
	next, wrapped := to.Advance()
	g.ActivePlayerID = next
	return wrapped
}

func (e *Engine) playCard(entry *gameEntry, playerID, cardID string) error {
	g := entry.state
	if err := requireTurn(g, rules.PhasePlay, playerID); err != nil {
		return err
	}
	p, _ := g.Player(playerID)
	if !p.holdsCard(cardID) {
		return ErrCardNotInHand
	}
	def, err := e.catalog.ByID(cardID)
	if err != nil {
		return err
	}

	p.removeFromHand(cardID)
	p.PlayedCardIDs = append(p.PlayedCardIDs, cardID)
	p.HasActed = true
	g.CenterCards = append(g.CenterCards, &CenterCard{
		PlayerID: playerID,
		CardID:   cardID,
		Position: len(g.CenterCards),
	})
	g.appendLog(playerID, fmt.Sprintf("%s plays a card face down", p.Username))

	ev := rules.NewEvent(rules.EventCardPlayed, g.GameID, playerID)
	ev.CardID = def.ID
	e.bus.Publish(ev)

	if g.advanceActive() {
		e.setPhase(g, rules.PhaseReveal)
	}
	return nil
}

func (e *Engine) drawCard(entry *gameEntry, playerID string) error {
	g := entry.state
	if err := requireTurn(g, rules.PhasePlay, playerID); err != nil {
		return err
	}
	p, _ := g.Player(playerID)
	drawn := g.Deck.Draw(1, entry.rng)
	if len(drawn) == 0 {
		g.appendLog(playerID, fmt.Sprintf("%s draws from an exhausted deck", p.Username))
		return nil
	}
	p.Hand = append(p.Hand, drawn...)
	g.appendLog(playerID, fmt.Sprintf("%s draws a card", p.Username))
	ev := rules.NewEvent(rules.EventCardDrawn, g.GameID, playerID)
	ev.Amount = len(drawn)
	e.bus.Publish(ev)
	return nil
}

func (e *Engine) endTurn(entry *gameEntry, playerID string) error {
	g := entry.state
	if err := requireTurn(g, rules.PhasePlay, playerID); err != nil {
		return err
	}
	p, _ := g.Player(playerID)
	p.HasActed = true
	g.appendLog(playerID, fmt.Sprintf("%s passes", p.Username))
	if g.advanceActive() {
		e.setPhase(g, rules.PhaseReveal)
	}
	return nil
}

func (e *Engine) revealCard(entry *gameEntry, playerID string) error {
	g := entry.state
	if err := requireTurn(g, rules.PhaseReveal, playerID); err != nil {
		return err
	}
	p, _ := g.Player(playerID)
	if cc, ok := g.centerCard(playerID); ok && !cc.Revealed {
		cc.Revealed = true
		g.appendLog(playerID, fmt.Sprintf("%s reveals their card", p.Username))
		ev := rules.NewEvent(rules.EventCardRevealed, g.GameID, playerID)
		ev.CardID = cc.CardID
		e.bus.Publish(ev)
	}
	if g.advanceActive() {
		e.resolveReveal(entry)
	}
	return nil
}

// processPhase force-reveals every remaining center card and resolves
// effects. Any seated player may call it to unstick a round; outside
// REVEAL it is illegal.
func (e *Engine) processPhase(entry *gameEntry, playerID string) error {
	g := entry.state
	if g.Phase != rules.PhaseReveal {
		return ErrInvalidPhase
	}
	for _, cc := range g.CenterCards {
		if cc.Revealed {
			continue
		}
		cc.Revealed = true
		ev := rules.NewEvent(rules.EventCardRevealed, g.GameID, cc.PlayerID)
		ev.CardID = cc.CardID
		e.bus.Publish(ev)
	}
	g.appendLog(playerID, "all center cards are revealed")
	e.resolveReveal(entry)
	return nil
}

// resolveReveal applies every revealed card's effect in priority order:
// allies first, then actions, then plots; play order within a tier.
// Called with the game lock held; leaves the game in RESOLUTION.
func (e *Engine) resolveReveal(entry *gameEntry) {
	g := entry.state

	ordered := make([]*CenterCard, 0, len(g.CenterCards))
	for _, cc := range g.CenterCards {
		if cc.Revealed {
			ordered = append(ordered, cc)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		ci, erri := e.catalog.ByID(ordered[i].CardID)
		cj, errj := e.catalog.ByID(ordered[j].CardID)
		if erri != nil || errj != nil {
			return ordered[i].Position < ordered[j].Position
		}
		pi, pj := ci.Type.RevealPriority(), cj.Type.RevealPriority()
		if pi != pj {
			return pi < pj
		}
		return ordered[i].Position < ordered[j].Position
	})

	for _, cc := range ordered {
		def, err := e.catalog.ByID(cc.CardID)
		if err != nil {
			e.logger.Error("center card missing from catalog",
				zap.String("game_id", g.GameID),
				zap.String("card_id", cc.CardID),
			)
			continue
		}
		for _, ev := range e.resolver.Apply(g, def, cc.PlayerID, entry.rng) {
			e.bus.Publish(ev)
		}
	}

	if len(g.Players) > 0 {
		g.ActivePlayerID = g.Players[0].UserID
	}
	e.setPhase(g, rules.PhaseResolution)
}

// rollDice resolves the active player's part of RESOLUTION: one d6 plus
// an influence bonus (floor of influence / 3), a replacement draw, and
// clearing their center slot. When the last player has rolled, the round
// resolves.
func (e *Engine) rollDice(entry *gameEntry, playerID string) error {
	g := entry.state
	if err := requireTurn(g, rules.PhaseResolution, playerID); err != nil {
		return err
	}
	p, _ := g.Player(playerID)

	roll := entry.dice() + floorDiv(p.Influence, 3)
	p.LastRoll = roll
	g.appendLog(playerID, fmt.Sprintf("%s rolls %d", p.Username, roll))
	ev := rules.NewEvent(rules.EventDiceRolled, g.GameID, playerID)
	ev.Amount = roll
	e.bus.Publish(ev)

	// Replacement draw and slot cleanup for players who committed a card.
	if len(p.PlayedCardIDs) > 0 {
		if drawn := g.Deck.Draw(1, entry.rng); len(drawn) > 0 {
			p.Hand = append(p.Hand, drawn...)
		}
		g.Deck.Discard(p.PlayedCardIDs...)
		p.PlayedCardIDs = nil
	}
	for i := len(g.CenterCards) - 1; i >= 0; i-- {
		if g.CenterCards[i].PlayerID == playerID {
			g.CenterCards = append(g.CenterCards[:i], g.CenterCards[i+1:]...)
		}
	}

	if g.advanceActive() {
		e.resolveRound(entry)
	}
	return nil
}

// floorDiv divides rounding toward negative infinity. Accumulated
// influence can go negative, and the bonus must keep flooring there
// rather than truncating toward zero.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// resolveRound decides the round winner: highest roll, ties broken by
// higher accumulated influence. A full tie awards no mandate and emits no
// winner entry; that is the designed policy, not an omission.
func (e *Engine) resolveRound(entry *gameEntry) {
	g := entry.state

	var winner *Player
	tied := false
	for _, p := range g.Players {
		switch {
		case winner == nil:
			winner = p
		case p.LastRoll > winner.LastRoll:
			winner, tied = p, false
		case p.LastRoll == winner.LastRoll:
			switch {
			case p.Influence > winner.Influence:
				winner, tied = p, false
			case p.Influence == winner.Influence:
				tied = true
			}
		}
	}

	if winner != nil && !tied {
		winner.Mandates++
		g.appendLog(winner.UserID, fmt.Sprintf("%s wins the round and gains a mandate (%d total)",
			winner.Username, winner.Mandates))
		ev := rules.NewEvent(rules.EventRoundResolved, g.GameID, winner.UserID)
		ev.Amount = winner.Mandates
		e.bus.Publish(ev)
	} else {
		g.appendLog("", "the round ends in a tie; no mandate is awarded")
		e.bus.Publish(rules.NewEvent(rules.EventRoundTied, g.GameID, ""))
	}

	e.runBackfire(entry)
}

// runBackfire clears round-scoped state, advances the round counter, and
// either loops into the next round's setup or terminates the game.
func (e *Engine) runBackfire(entry *gameEntry) {
	g := entry.state
	e.setPhase(g, rules.PhaseBackfire)

	g.BlockCoalitions = false
	g.PendingProposals = make(map[string]string)
	g.CenterCards = nil
	for _, p := range g.Players {
		p.Influence = 0
		p.LastRoll = 0
		p.HasActed = false
	}

	g.Round++
	if len(g.Players) > 0 {
		g.ActivePlayerID = g.Players[0].UserID
	}

	if g.Round > g.MaxRounds || e.thresholdReached(g) {
		e.finishGame(g)
		return
	}

	g.appendLog("", fmt.Sprintf("round %d begins", g.Round))
	e.bus.Publish(rules.NewEvent(rules.EventRoundStarted, g.GameID, ""))
	e.runSetup(entry)
}

func (e *Engine) thresholdReached(g *GameState) bool {
	for _, p := range g.Players {
		if p.Mandates >= g.MandateThreshold {
			return true
		}
	}
	return false
}

// finishGame computes final standings: a unique winner when one player
// strictly holds the most mandates, otherwise a tie among the leaders.
func (e *Engine) finishGame(g *GameState) {
	e.setPhase(g, rules.PhaseFinal)

	best := -1
	for _, p := range g.Players {
		if p.Mandates > best {
			best = p.Mandates
		}
	}
	g.WinnerIDs = nil
	for _, p := range g.Players {
		if p.Mandates == best {
			g.WinnerIDs = append(g.WinnerIDs, p.UserID)
		}
	}

	if len(g.WinnerIDs) == 1 {
		if p, ok := g.Player(g.WinnerIDs[0]); ok {
			g.appendLog(p.UserID, fmt.Sprintf("%s wins with %d mandates", p.Username, p.Mandates))
		}
	} else {
		g.appendLog("", fmt.Sprintf("the game ends in a tie at %d mandates", best))
	}

	e.setPhase(g, rules.PhaseFinished)
	g.Status = rules.StatusCompleted
	ev := rules.NewEvent(rules.EventGameOver, g.GameID, "")
	ev.Amount = best
	e.bus.Publish(ev)

	e.logger.Info("game finished",
		zap.String("game_id", g.GameID),
		zap.Strings("winners", g.WinnerIDs),
		zap.Int("mandates", best),
	)
}

// coalitionWindow reports whether coalition actions are currently legal.
// They are orthogonal to the turn but only open during SETUP and PLAY.
func coalitionWindow(g *GameState) error {
	if g.Phase != rules.PhaseSetup && g.Phase != rules.PhasePlay {
		return ErrInvalidPhase
	}
	if g.BlockCoalitions {
		return ErrCoalitionBlocked
	}
	return nil
}

func (e *Engine) proposeCoalition(entry *gameEntry, playerID, targetID string) error {
	g := entry.state
	if err := coalitionWindow(g); err != nil {
		return err
	}
	if targetID == playerID {
		return ErrInvalidTarget
	}
	target, ok := g.Player(targetID)
	if !ok {
		return ErrPlayerNotFound
	}
	if _, in := g.ActiveCoalition(playerID); in {
		return ErrAlreadyInCoalition
	}
	if _, in := g.ActiveCoalition(targetID); in {
		return ErrAlreadyInCoalition
	}

	g.PendingProposals[targetID] = playerID
	p, _ := g.Player(playerID)
	g.appendLog(playerID, fmt.Sprintf("%s proposes a coalition to %s", p.Username, target.Username))
	ev := rules.NewEvent(rules.EventCoalitionProposed, g.GameID, playerID)
	ev.TargetID = targetID
	e.bus.Publish(ev)
	return nil
}

func (e *Engine) acceptCoalition(entry *gameEntry, playerID string) error {
	g := entry.state
	if err := coalitionWindow(g); err != nil {
		return err
	}
	proposerID, ok := g.PendingProposals[playerID]
	if !ok {
		return ErrNoPendingProposal
	}
	// Coalitions are strictly two-party; a proposal pointing back at its
	// own target can only come from corrupt state.
	if proposerID == playerID {
		delete(g.PendingProposals, playerID)
		return ErrInvalidTarget
	}
	if _, in := g.ActiveCoalition(playerID); in {
		return ErrAlreadyInCoalition
	}
	if _, in := g.ActiveCoalition(proposerID); in {
		return ErrAlreadyInCoalition
	}

	delete(g.PendingProposals, playerID)
	g.Coalitions = append(g.Coalitions, Coalition{
		Player1ID:   proposerID,
		Player2ID:   playerID,
		RoundFormed: g.Round,
		Active:      true,
	})
	p, _ := g.Player(playerID)
	proposer, _ := g.Player(proposerID)
	g.appendLog(playerID, fmt.Sprintf("%s and %s form a coalition", proposer.Username, p.Username))
	ev := rules.NewEvent(rules.EventCoalitionFormed, g.GameID, proposerID)
	ev.TargetID = playerID
	e.bus.Publish(ev)
	return nil
}

func (e *Engine) declineCoalition(entry *gameEntry, playerID string) error {
	g := entry.state
	proposerID, ok := g.PendingProposals[playerID]
	if !ok {
		return ErrNoPendingProposal
	}
	delete(g.PendingProposals, playerID)
	p, _ := g.Player(playerID)
	g.appendLog(playerID, fmt.Sprintf("%s declines the coalition proposal", p.Username))
	ev := rules.NewEvent(rules.EventCoalitionDeclined, g.GameID, playerID)
	ev.TargetID = proposerID
	e.bus.Publish(ev)
	return nil
}

// MarkDisconnected records a dropped connection. The player keeps their
// seat, hand, and mandates; only the connection flag flips.
func (e *Engine) MarkDisconnected(gameID, userID string) (*GameState, error) {
	return e.setConnected(gameID, userID, false)
}

// Reconnect re-associates a returning player with their existing record.
func (e *Engine) Reconnect(gameID, userID string) (*GameState, error) {
	return e.setConnected(gameID, userID, true)
}

func (e *Engine) setConnected(gameID, userID string, connected bool) (*GameState, error) {
	entry, err := e.entry(gameID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	g := entry.state

	p, ok := g.Player(userID)
	if !ok {
		return nil, ErrPlayerNotFound
	}
	p.IsConnected = connected
	if connected {
		g.appendLog(userID, fmt.Sprintf("%s reconnected", p.Username))
		e.bus.Publish(rules.NewEvent(rules.EventPlayerReconnected, gameID, userID))
	} else {
		g.appendLog(userID, fmt.Sprintf("%s disconnected", p.Username))
		e.bus.Publish(rules.NewEvent(rules.EventPlayerDisconnected, gameID, userID))
	}
	return g.Clone(), nil
}
