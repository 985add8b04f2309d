package passwordreset

// RequestResult is the outcome of Flow.RequestReset.
type RequestResult int

const (
	RequestTechnicalError RequestResult = iota
	Requested
	RequestDisabled
	RequestUnconfirmed
	RateLimited
)

func (r RequestResult) String() string {
	switch r {
	case RequestTechnicalError:
		return "technical_error"
	case Requested:
		return "requested"
	case RequestDisabled:
		return "disabled"
	case RequestUnconfirmed:
		return "unconfirmed"
	case RateLimited:
		return "rate_limited"
	}
	return "unknown"
}

// Result is the outcome of Flow.ResetPassword.
type Result int

const (
	TechnicalError Result = iota
	Success
	Expired
	Disabled
	WrongCode
	InvalidPassword
)

func (r Result) String() string {
	switch r {
	case TechnicalError:
		return "technical_error"
	case Success:
		return "success"
	case Expired:
		return "expired"
	case Disabled:
		return "disabled"
	case WrongCode:
		return "wrong_code"
	case InvalidPassword:
		return "invalid_password"
	}
	return "unknown"
}
