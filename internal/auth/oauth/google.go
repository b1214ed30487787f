package oauth

import "golang.org/x/oauth2/endpoints"

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

type googleUser struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
}

// NewGoogle returns the Google provider.
func NewGoogle(c Config) Provider {
	if c.Endpoint.AuthURL == "" {
		c.Endpoint = endpoints.Google
	}
	if c.UserInfoURL == "" {
		c.UserInfoURL = googleUserInfoURL
	}

	return newProvider(ProviderGoogle, c, []string{"openid", "email", "profile"}, func(body []byte) (Identity, error) {
		var u googleUser
		if err := decodeJSON(body, &u); err != nil {
			return Identity{}, err
		}
		return Identity{
			ExternalID:    u.Sub,
			Email:         u.Email,
			Name:          u.Name,
			GivenName:     u.GivenName,
			PictureURL:    u.Picture,
			EmailVerified: u.EmailVerified,
		}, nil
	})
}
