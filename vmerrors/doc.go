// Package vmerrors is a helper package for the plain Go error type. We think
// of these errors as curated errors: external to this package they are
// referenced as plain errors (they implement the error interface), but
// internally each is composed of a fixed message part and a chain of
// wrapped values.
//
// The Error() implementation normalises the chain so that adjacent duplicate
// parts are collapsed. This alleviates the problem of when and how to wrap
// an error as it propagates up a call stack: an inner layer can curate an
// error with context and an outer layer can do the same without the message
// accreting the same prefix twice.
package vmerrors
