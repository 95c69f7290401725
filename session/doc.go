// Package session implements the client side of a secure aggregation round.
// A [Session] walks one participant through key sharing, masking its model
// update and helping the aggregator recover from dropouts, without ever
// revealing the participant's individual update.
//
// # Phases
//
// A session moves strictly forward through five phases:
//
//	Idle -> ShareKeys -> MaskedInput -> Unmasking -> Completed
//
// Each operation is legal in exactly one source phase. Calling it anywhere
// else returns a [PhaseError] matching [ErrWrongPhase] and leaves the
// session untouched. [Session.Reset] is the only way back to Idle and may be
// called at any time to abandon a round.
//
// # Round walkthrough
//
//	s := session.New()
//
//	// Server assigned identity and parameters
//	if err := s.BeginFromResponse(resp); err != nil {
//		return err
//	}
//
//	// Shamir-share the masking seed; relay to the server
//	shares, err := s.GenerateKeyShares()
//	if err != nil {
//		return err
//	}
//	req := s.ShareKeysRequest(deviceID, shares)
//
//	// Store the bundles peers addressed to us
//	for owner, payload := range relayed {
//		if err := s.AcceptPeerShares(owner, payload); err != nil {
//			return err
//		}
//	}
//
//	// Mask the local update
//	masked, err := s.MaskModelUpdate(weights)
//
//	// Help unmask participants that dropped out
//	out, err := s.ProvideUnmaskingShares(unmask.DroppedClientIndices)
//
//	// Ready for the next round
//	s.Reset()
//
// # Dropout recovery
//
// After key sharing every participant holds one share of every peer's seed.
// [Session.ProvideUnmaskingShares] releases only the shares whose owner the
// server reported as dropped. Shares of surviving participants never leave
// the session, so the aggregator can remove dropped masks without learning
// anything about a survivor's seed.
//
// # Concurrency
//
// All methods are safe for concurrent use. Operations on one session are
// serialized by a mutex; independent sessions share no state and may run in
// parallel.
//
// # Transport Agnostic
//
// This package does not handle network communication. It consumes server
// responses and produces request payloads; moving them is the caller's job.
package session
