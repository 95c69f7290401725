// Package aggregate implements the aggregator side of dropout recovery.
//
// Surviving participants answer an unmask request with shares of the seeds
// of dropped participants. The aggregator groups those shares by owner,
// reconstructs each dropped seed once at least t shares have arrived,
// checks it against the commitment published during key sharing and then
// recomputes the mask to strip from that participant's input.
//
//	agg, err := aggregate.New(t, n)
//	...
//	agg.AddMaskedInput(idx, masked)
//	agg.AddUnmaskingShares(payload)
//	seed, err := agg.RecoverSeed(dropped, commitment)
//	update, err := agg.Unmask(dropped, seed)
//
// The stateless helpers [Collect], [RecoverSeed], [Sum] and [RemoveMask]
// expose the same steps for callers that keep their own bookkeeping.
package aggregate
