// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/rotorlabs/rotor/rotor"
)

// Event is a structured notification emitted by the engine. Events are
// observational only; the engine's correctness never depends on a reader
// consuming them.
type Event interface {
	eventName() string
}

// RoundAdvanced fires once per round rotation.
type RoundAdvanced struct {
	Round         uint32
	SelectedCount uint32
	TotalStaked   *big.Int
}

// ParticipantPaid fires when a selected participant receives its round reward.
type ParticipantPaid struct {
	Round       uint32
	Participant rotor.Address
	Amount      *big.Int
}

// BackerRewarded fires when a backer's pro-rata share is credited.
type BackerRewarded struct {
	Round  uint32
	Backer rotor.Address
	Amount *big.Int
}

// Compounded fires when a backer's payout fraction is re-bonded onto its
// candidate.
type Compounded struct {
	Backer    rotor.Address
	Candidate rotor.Address
	Amount    *big.Int
}

// ElectionStalled fires when a round's selection found no eligible candidate
// and the previous round's snapshot set was reused verbatim.
type ElectionStalled struct {
	Round uint32
}

func (RoundAdvanced) eventName() string   { return "RoundAdvanced" }
func (ParticipantPaid) eventName() string { return "ParticipantPaid" }
func (BackerRewarded) eventName() string  { return "BackerRewarded" }
func (Compounded) eventName() string      { return "Compounded" }
func (ElectionStalled) eventName() string { return "ElectionStalled" }

// Sink receives engine events.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Publish implements Sink.
func (f SinkFunc) Publish(ev Event) { f(ev) }

// NoopSink discards all events.
func NoopSink() Sink {
	return SinkFunc(func(Event) {})
}
