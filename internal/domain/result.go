package domain

// Result is the discriminated outcome returned to API callers.
type Result struct {
	Success   bool      `json:"success"`
	BookingID string    `json:"bookingId,omitempty"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	Message   string    `json:"message,omitempty"`
	Booking   *Booking  `json:"booking,omitempty"`
}

func NewResult(b *Booking, err error) Result {
	if err != nil {
		return Result{
			Success:   false,
			ErrorKind: KindOf(err),
			Message:   MessageOf(err),
		}
	}
	res := Result{Success: true, Booking: b}
	if b != nil {
		res.BookingID = b.ID
	}
	return res
}
