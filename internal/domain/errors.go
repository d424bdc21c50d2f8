// Package domain defines the replenishment engine's error taxonomy. Every
// error carries the entity id and offending quantities so the API layer can
// render an actionable message without re-querying.
package domain

import (
	"errors"
	"fmt"
)

// ErrResourceBusy is returned when a per-item or per-order serialization scope
// could not be acquired within the bounded wait. Safe to retry with backoff.
var ErrResourceBusy = errors.New("resource busy: lock not acquired")

// ErrEmptyOrder is returned when a purchase order is created with no lines.
var ErrEmptyOrder = errors.New("purchase order must have at least one line")

// ValidationError reports malformed input rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientStockError reports a movement that would drive an item's stock
// below zero without the caller authorizing negative stock.
type InsufficientStockError struct {
	ItemCode  string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: available %d, requested %d",
		e.ItemCode, e.Available, e.Requested)
}

// InvalidTransitionError reports a purchase-order event with no edge from the
// order's current status.
type InvalidTransitionError struct {
	OrderNo string
	From    string
	Event   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot %s from status %s", e.OrderNo, e.Event, e.From)
}

// InvalidStateError reports an operation attempted against an order whose
// status does not permit it (for example receiving against a draft order, or
// cancelling an order that already has receipts).
type InvalidStateError struct {
	OrderNo string
	Status  string
	Reason  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("order %s in status %s: %s", e.OrderNo, e.Status, e.Reason)
}

// QuantityMismatchError reports an inspection whose accepted and rejected
// quantities do not sum to the received quantity.
type QuantityMismatchError struct {
	Received int
	Accepted int
	Rejected int
}

func (e *QuantityMismatchError) Error() string {
	return fmt.Sprintf("accepted %d + rejected %d does not equal received %d",
		e.Accepted, e.Rejected, e.Received)
}

// OverReceiptError reports a receipt that would push a line's cumulative
// received quantity past its ordered quantity. Never silently truncated.
type OverReceiptError struct {
	OrderNo         string
	ItemCode        string
	Ordered         int
	AlreadyReceived int
	Received        int
}

func (e *OverReceiptError) Error() string {
	return fmt.Sprintf("order %s item %s: receiving %d would exceed ordered %d (already received %d)",
		e.OrderNo, e.ItemCode, e.Received, e.Ordered, e.AlreadyReceived)
}

// IncompleteReceiptError reports an attempt to close an order while a line is
// still short of its ordered quantity.
type IncompleteReceiptError struct {
	OrderNo  string
	ItemCode string
	Ordered  int
	Received int
}

func (e *IncompleteReceiptError) Error() string {
	return fmt.Sprintf("order %s cannot complete: item %s received %d of %d",
		e.OrderNo, e.ItemCode, e.Received, e.Ordered)
}

// NotFoundError reports a missing item, supplier, order, line or rule.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}
