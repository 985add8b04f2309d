package notify

import (
	"fmt"
	"strings"
	"time"
)

// Templates builds the subject and body of account emails.
type Templates struct {
	AppName      string
	AppURL       string
	SupportEmail string
}

func (t Templates) link(path, token string) string {
	return strings.TrimRight(t.AppURL, "/") + path + token
}

func (t Templates) Confirmation(username, urlToken, code string, lifespan time.Duration) (string, string) {
	subject := fmt.Sprintf("Confirm your %s account", t.AppName)
	body := fmt.Sprintf(`Hi %s,

Thanks for signing up for %s. To confirm your email address open

%s

and enter this code:

%s

The link expires in %s. If you did not sign up, ignore this message.

Questions? Contact %s.
`, username, t.AppName, t.link("/signup/confirm/", urlToken), code, humanize(lifespan), t.SupportEmail)
	return subject, body
}

func (t Templates) PasswordReset(username, urlToken, code string, lifespan time.Duration) (string, string) {
	subject := fmt.Sprintf("Reset your %s password", t.AppName)
	body := fmt.Sprintf(`Hi %s,

Someone asked to reset the password of your %s account. To choose a new
password open

%s

and enter this code:

%s

The link expires in %s and can be used once. If you did not ask for a
reset, ignore this message; your password stays unchanged.

Questions? Contact %s.
`, username, t.AppName, t.link("/password-reset/", urlToken), code, humanize(lifespan), t.SupportEmail)
	return subject, body
}

func humanize(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		if d == time.Minute {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
	return d.String()
}
