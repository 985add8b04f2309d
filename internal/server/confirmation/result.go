package confirmation

// Result is the outcome of Flow.Confirm.
type Result int

const (
	TechnicalError Result = iota
	Confirmed
	AlreadyConfirmed
	Expired
	SignupExpired
	Disabled
	WrongCode
)

func (r Result) String() string {
	switch r {
	case TechnicalError:
		return "technical_error"
	case Confirmed:
		return "confirmed"
	case AlreadyConfirmed:
		return "already_confirmed"
	case Expired:
		return "expired"
	case SignupExpired:
		return "signup_expired"
	case Disabled:
		return "disabled"
	case WrongCode:
		return "wrong_code"
	default:
		return "unknown"
	}
}
