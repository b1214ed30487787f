/*
Package authsdk is a Go client for the authbase REST API.

# SDKClient vs Session

SDKClient covers the public endpoints: registration, login, the second
factor exchange, password reset and email verification. Any call that
yields tokens hands back a Session, which carries the access and refresh
token pair and signs every request with the access token.

	client := authsdk.NewSDKClient("https://auth.example.com")

	res, err := client.Login(ctx, "alice@example.com", "S3cret!pass")
	if err != nil {
		return err
	}
	if res.Challenge != nil {
		// two-factor accounts get a challenge instead of tokens
		session, err = client.VerifyOTP(ctx, res.Challenge.OTPID, code)
	} else {
		session = res.Session
	}

	user, err := session.GetUser(ctx, res.User.ID)

# Token refresh

A Session reads the expiry from its access token without verifying the
signature and rotates the pair through GET /v1/auth/refresh-tokens shortly
before it lapses. Rotation replaces the refresh token too, so a Session
must not be copied.

# Errors

Every non-2xx response is returned as an *APIError carrying the status, the
message from the failure envelope and any per-field validation errors:

	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
		...
	}
*/
package authsdk
