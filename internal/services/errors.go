package services

import "errors"

var (
	ErrBookingNotFound       = errors.New("booking not found")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrBookingRejected       = errors.New("booking has been rejected")
	ErrInsufficientInventory = errors.New("insufficient ticket inventory")
	ErrSettlementConflict    = errors.New("booking settled by a concurrent request")
	ErrInvalidAmount         = errors.New("invalid payment amount")
	ErrUpstream              = errors.New("upstream failure")
)
