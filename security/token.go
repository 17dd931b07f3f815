package security

import (
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/oauth2"
)

// expirySkew is subtracted from the token deadline so a token about to
// expire mid-request is treated as already expired.
const expirySkew = 30 * time.Second

// TokenExpired reports whether the access token in tok is expired or about
// to expire. The token server's expiry field is authoritative when set;
// otherwise the exp claim of the access token itself is consulted without
// signature verification, since the token is only inspected, never
// trusted. A token whose deadline cannot be determined is assumed valid
// and left for the Graph API to reject.
func TokenExpired(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return true
	}

	if !tok.Expiry.IsZero() {
		return time.Now().After(tok.Expiry.Add(-expirySkew))
	}

	parsed, err := jwt.Parse([]byte(tok.AccessToken), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return false
	}

	exp := parsed.Expiration()
	if exp.IsZero() {
		return false
	}
	return time.Now().After(exp.Add(-expirySkew))
}
