// Package common contains shared constants and sentinel errors used across
// preservd components.
package common

// ObjectIDKey and TransactionKey are the structured-logging keys every
// preservation stage attaches so attempts can be traced end to end.
const (
	ObjectIDKey    = "object_id"
	TransactionKey = "tx"
)
