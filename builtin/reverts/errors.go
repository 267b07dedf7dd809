// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

// validation
var (
	ErrWrongCoinCount         = New(KindValidation, "wrong_coin_count", "exactly one coin must be sent")
	ErrZeroAmount             = New(KindValidation, "zero_amount", "amount must be greater than zero")
	ErrInvalidDenomFormat     = New(KindValidation, "invalid_denom_format", "share denom must be {validator}/{record_id}")
	ErrInvalidValidatorPrefix = New(KindValidation, "invalid_validator_prefix", "share denom has an unrecognized validator prefix")
	ErrInvalidRecordID        = New(KindValidation, "invalid_record_id", "share record id is not a non-negative integer")
	ErrUnknownVoteOption      = New(KindValidation, "unknown_vote_option", "unknown vote option")
	ErrInvalidValidator       = New(KindValidation, "invalid_validator", "shares belong to a different validator")
	ErrInvalidFunds           = New(KindValidation, "invalid_funds", "funds do not match the expected denom")
	ErrInvalidMessage         = New(KindValidation, "invalid_message", "malformed message")
)

// authorization
var (
	ErrUnauthorized    = New(KindAuthorization, "unauthorized", "caller is not the owner")
	ErrNotOwningLedger = New(KindAuthorization, "not_owning_ledger", "caller is not the owning ledger")
)

// state
var (
	ErrWrongProposalState  = New(KindState, "wrong_proposal_state", "operation not allowed in current proposal state")
	ErrInsufficientBalance = New(KindState, "insufficient_balance", "insufficient staked amount")
	ErrOverflow            = New(KindState, "overflow", "arithmetic overflow")
	ErrEmptyPool           = New(KindState, "empty_pool", "no stake to distribute rewards to")
	ErrMaxCapReached       = New(KindState, "max_cap_reached", "pool max cap reached")
	ErrDestroyed           = New(KindState, "destroyed", "locker has been destroyed")
	ErrUnexpectedReply     = New(KindState, "unexpected_reply", "reply token was not issued")
	ErrDuplicateReply      = New(KindState, "duplicate_reply", "reply token already confirmed")
	ErrProposalStillActive = New(KindState, "proposal_still_active", "proposal has not finished")
)

// external
var (
	ErrValidatorNotFound   = New(KindExternal, "validator_not_found", "validator not found")
	ErrCreationFailed      = New(KindExternal, "creation_failed", "locker creation failed")
	ErrTeardownFailed      = New(KindExternal, "teardown_failed", "locker teardown failed")
	ErrProposalNotInVoting = New(KindExternal, "proposal_not_in_voting", "proposal is not in voting period")
	ErrSubstrate           = New(KindExternal, "substrate", "staking substrate rejected the request")
)
