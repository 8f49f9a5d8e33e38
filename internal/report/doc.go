// Package report provides Reporter implementations that observe per-target outcomes.
//
// The pipeline never returns per-target errors to its caller. Instead every worker hands
// each Outcome to a jobdata.Reporter: LogReporter writes it to zap, Tally keeps counts for
// an optional exit status, and Multi fans a single outcome out to several reporters.
package report
