package order

import (
	"time"

	"github.com/go-faster/errors"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPlaced     Status = "Placed"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

var (
	// ErrNotCancellable is returned when cancelling a shipped, delivered or
	// already cancelled order.
	ErrNotCancellable = errors.New("order cannot be cancelled")
	// ErrInvalidTransition is returned when leaving a terminal status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("invalid order status")
)

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPlaced, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", errors.Wrapf(ErrInvalidStatus, "%q", s)
	}
}

// Terminal reports whether no further status change is allowed.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s Status) Cancellable() bool {
	return s == StatusPlaced || s == StatusProcessing
}

// Cancel moves the order to Cancelled.
func (o *Order) Cancel(reason string, now time.Time) error {
	if !o.Status.Cancellable() {
		return errors.Wrapf(ErrNotCancellable, "status %s", o.Status)
	}
	o.Status = StatusCancelled
	o.CancelReason = reason
	o.CancelledAt = &now
	return nil
}

// Update is an administrative change. Nil fields are left untouched.
type Update struct {
	IsPaid      *bool
	IsDelivered *bool
	Status      *Status
}

// Apply performs u on the order. Payment and delivery flags stamp or clear
// their timestamps. Setting Delivered marks the order delivered; setting
// Cancelled follows the cancellation rule.
func (o *Order) Apply(u Update, now time.Time) error {
	if u.Status != nil {
		next := *u.Status
		if _, err := ParseStatus(string(next)); err != nil {
			return err
		}
		switch {
		case next == o.Status:
		case o.Status.Terminal():
			return errors.Wrapf(ErrInvalidTransition, "%s to %s", o.Status, next)
		case next == StatusCancelled:
			if err := o.Cancel(o.CancelReason, now); err != nil {
				return err
			}
		default:
			o.Status = next
		}
	}

	if u.IsPaid != nil {
		o.IsPaid = *u.IsPaid
		o.PaidAt = nil
		if o.IsPaid {
			o.PaidAt = &now
		}
	}
	if u.IsDelivered != nil {
		o.IsDelivered = *u.IsDelivered
		o.DeliveredAt = nil
		if o.IsDelivered {
			o.DeliveredAt = &now
		}
	}
	if u.Status != nil && *u.Status == StatusDelivered {
		o.IsDelivered = true
		o.DeliveredAt = &now
	}
	return nil
}
