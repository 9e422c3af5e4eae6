// Package aggregates runs multi-row writes inside one transaction, guards
// optimistic updates and reports each operation to metrics hooks.
package aggregates
