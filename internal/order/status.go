package order

import (
	"errors"
	"fmt"

	"khushin_back_end/internal/models"
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid order status transition")

// CanTransition reports whether an order may move from one status to another.
// Only pending orders move, and only to completed or failed.
func CanTransition(from, to models.OrderStatus) bool {
	if from != models.OrderPending {
		return false
	}
	return to == models.OrderCompleted || to == models.OrderFailed
}

// Transition validates a status change and returns the new status.
func Transition(from, to models.OrderStatus) (models.OrderStatus, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s models.OrderStatus) bool {
	return s == models.OrderCompleted || s == models.OrderFailed
}

// ParseStatus converts a raw status string.
func ParseStatus(s string) (models.OrderStatus, error) {
	switch st := models.OrderStatus(s); st {
	case models.OrderPending, models.OrderCompleted, models.OrderFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}
