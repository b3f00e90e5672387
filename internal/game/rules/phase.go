package rules

import (
	"encoding/json"
	"fmt"
)

// Status is the coarse lifecycle of a game.
type Status int

const (
	StatusLobby Status = iota
	StatusActive
	StatusCompleted
)

var statusNames = map[Status]string{
	StatusLobby:     "LOBBY",
	StatusActive:    "ACTIVE",
	StatusCompleted: "COMPLETED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS_%d", int(s))
}

// Phase is the state-machine discriminator within an active game.
//
// A round runs SETUP -> PLAY -> REVEAL -> RESOLUTION -> BACKFIRE and then
// either loops back to SETUP for the next round or terminates via
// FINAL -> FINISHED.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseSetup
	PhasePlay
	PhaseReveal
	PhaseResolution
	PhaseBackfire
	PhaseFinal
	PhaseFinished
)

var phaseNames = map[Phase]string{
	PhaseLobby:      "LOBBY",
	PhaseSetup:      "SETUP",
	PhasePlay:       "PLAY",
	PhaseReveal:     "REVEAL",
	PhaseResolution: "RESOLUTION",
	PhaseBackfire:   "BACKFIRE",
	PhaseFinal:      "FINAL",
	PhaseFinished:   "FINISHED",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Terminal reports whether no further actions are accepted.
func (p Phase) Terminal() bool {
	return p == PhaseFinished
}

// Enums marshal by name so broadcast snapshots stay readable for clients
// and stable across reorderings of the constants.

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for status, n := range statusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", name)
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for phase, n := range phaseNames {
		if n == name {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", name)
}
