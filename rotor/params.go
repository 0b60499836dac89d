// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rotor

// Protocol constants.
const (
	// PointsPerBlock is awarded to a block author once per authored block.
	PointsPerBlock = uint64(20)

	// InitialRoundIndex is the index of the genesis round.
	InitialRoundIndex = uint32(1)
)
