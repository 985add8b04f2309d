package services

type SignupResult int

const (
	SignupTechnicalError SignupResult = iota
	SignupCreated
	SignupInvalid
	SignupConflict
)

type LoginResult int

const (
	LoginTechnicalError LoginResult = iota
	LoginOK
	LoginInvalidCredentials
	LoginDisabled
	LoginUnconfirmed
)

type ResendResult int

const (
	ResendTechnicalError ResendResult = iota
	ResendSent
	ResendTooSoon
	ResendUnknownUser
	ResendAlreadyConfirmed
	ResendDisabled
)

type ResetRequestResult int

const (
	ResetRequestTechnicalError ResetRequestResult = iota
	ResetRequestSent
	ResetRequestUnknownUser
	ResetRequestDisabled
	ResetRequestUnconfirmed
	ResetRequestRateLimited
)

func (r SignupResult) String() string {
	switch r {
	case SignupTechnicalError:
		return "technical_error"
	case SignupCreated:
		return "created"
	case SignupInvalid:
		return "invalid"
	case SignupConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

func (r LoginResult) String() string {
	switch r {
	case LoginTechnicalError:
		return "technical_error"
	case LoginOK:
		return "ok"
	case LoginInvalidCredentials:
		return "invalid_credentials"
	case LoginDisabled:
		return "disabled"
	case LoginUnconfirmed:
		return "unconfirmed"
	default:
		return "unknown"
	}
}

func (r ResendResult) String() string {
	switch r {
	case ResendTechnicalError:
		return "technical_error"
	case ResendSent:
		return "sent"
	case ResendTooSoon:
		return "too_soon"
	case ResendUnknownUser:
		return "unknown_user"
	case ResendAlreadyConfirmed:
		return "already_confirmed"
	case ResendDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

func (r ResetRequestResult) String() string {
	switch r {
	case ResetRequestTechnicalError:
		return "technical_error"
	case ResetRequestSent:
		return "sent"
	case ResetRequestUnknownUser:
		return "unknown_user"
	case ResetRequestDisabled:
		return "disabled"
	case ResetRequestUnconfirmed:
		return "unconfirmed"
	case ResetRequestRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}
