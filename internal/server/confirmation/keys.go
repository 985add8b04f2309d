package confirmation

const (
	urlTokenPrefix = "signup_confirmation_url_token:"
	hashPrefix     = "signup_confirmation_token_hash:"
	saltPrefix     = "signup_confirmation_token_salt:"
	cooldownPrefix = "signup_confirmation_email:"
)

func urlTokenKey(urlToken string) string { return urlTokenPrefix + urlToken }
func hashKey(username string) string     { return hashPrefix + username }
func saltKey(username string) string     { return saltPrefix + username }
func cooldownKey(username string) string { return cooldownPrefix + username }
