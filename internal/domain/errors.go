package domain

import "errors"

var (
	ErrRecordNotFound       = errors.New("record not found")
	ErrSeatAlreadyHeld      = errors.New("seat is held by another customer")
	ErrSeatAlreadyBooked    = errors.New("seat is already booked")
	ErrSeatNotFound         = errors.New("seat does not exist for this showtime")
	ErrBookingNotPending    = errors.New("booking is no longer pending")
	ErrDeadlinePassed       = errors.New("booking payment deadline has passed")
	ErrRefundAlreadyApplied = errors.New("points refund was already applied for this booking")
	ErrInsufficientPoints   = errors.New("user does not have enough points")
)
