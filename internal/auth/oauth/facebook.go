package oauth

import (
	"strings"

	"golang.org/x/oauth2/endpoints"
)

const facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,first_name,middle_name,last_name,email,picture"

type facebookUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
	Picture    struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// NewFacebook returns the Facebook provider. Facebook only hands out
// confirmed addresses, so the email is treated as verified.
func NewFacebook(c Config) Provider {
	if c.Endpoint.AuthURL == "" {
		c.Endpoint = endpoints.Facebook
	}
	if c.UserInfoURL == "" {
		c.UserInfoURL = facebookUserInfoURL
	}

	return newProvider(ProviderFacebook, c, []string{"email", "public_profile"}, func(body []byte) (Identity, error) {
		var u facebookUser
		if err := decodeJSON(body, &u); err != nil {
			return Identity{}, err
		}

		name := u.Name
		if name == "" {
			name = strings.Join(strings.Fields(u.FirstName+" "+u.MiddleName+" "+u.LastName), " ")
		}
		return Identity{
			ExternalID:    u.ID,
			Email:         u.Email,
			Name:          name,
			GivenName:     u.FirstName,
			PictureURL:    u.Picture.Data.URL,
			EmailVerified: true,
		}, nil
	})
}
