package domain

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrLocationMismatch   = errors.New("cart belongs to a different location")
	ErrPickupTimeRequired = errors.New("scheduled pickup requires a time")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrOrderNotReady      = errors.New("order is not ready for pickup")
	ErrNotCustomizable    = errors.New("item cannot be customized")
	ErrUnknownSize        = errors.New("unknown size")
	ErrSizeMismatch       = errors.New("size conflicts with customization size")
	ErrUnknownMilk        = errors.New("unknown milk")
	ErrUnknownSyrup       = errors.New("unknown syrup")
	ErrNoteTooLong        = errors.New("special instructions too long")
)
