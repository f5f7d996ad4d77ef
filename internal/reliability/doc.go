// Package reliability aggregates a user's attendance history and peer
// reviews into windowed counters and a bounded reliability index.
//
// Counters are never updated incrementally: every recompute rebuilds the
// 30-day, 90-day, and lifetime windows from raw attendance rows, which
// avoids drift and double counting at the cost of rereading history. The
// index itself is produced by a pluggable scoring function so the weighting
// formula can be recalibrated without touching aggregation.
package reliability
