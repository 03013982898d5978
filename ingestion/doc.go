// Package ingestion provides pipeline orchestration for importing book
// records into a pair of vector collections.
//
// The Pipeline type runs one import as a state machine:
//
//	Idle → ServiceCheck → CollectionSetup → Loading → Importing → Verifying → Done
//
// Any fatal error moves it to Failed instead. Records are split into
// fixed-size batches that a bounded worker pool embeds and writes. Each
// record yields a tag point and a description point sharing one identifier,
// written to the tag and description collections respectively.
//
// Per-record embedding failures and per-batch write failures are counted
// and logged but never stop the run. A run always ends with a Summary.
package ingestion
