// Package aggregates holds the error vocabulary shared by every write path:
// codes, constructors and the mapping onto transport status.
package aggregates
