package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenIssuer signs and verifies the HS256 access tokens handed to
// cashier devices. The subject claim carries the user id.
type TokenIssuer struct {
	Secret    []byte
	Issuer    string
	Audience  string
	TTL       time.Duration
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

func (t TokenIssuer) algorithm() jwa.SignatureAlgorithm {
	if t.Algorithm != "" {
		return t.Algorithm
	}
	return jwa.HS256
}

// Sign builds and signs an access token for the user.
func (t TokenIssuer) Sign(userID string, now time.Time) (string, time.Time, error) {
	if len(t.Secret) == 0 {
		return "", time.Time{}, errors.New("auth: signing secret not configured")
	}
	expiresAt := now.Add(t.TTL)
	token, err := jwt.NewBuilder().
		Subject(userID).
		Issuer(t.Issuer).
		Audience([]string{t.Audience}).
		IssuedAt(now).
		NotBefore(now.Add(-t.ClockSkew)).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(t.algorithm(), t.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// Parse verifies the signature and claims of an access token and returns
// the subject. The algorithm is read from the protected header first so a
// token signed with an unexpected algorithm is rejected before any key
// material is used.
func (t TokenIssuer) Parse(raw string, now time.Time) (string, error) {
	algorithm, err := headerAlgorithm(raw)
	if err != nil {
		return "", err
	}
	if algorithm != t.algorithm() {
		return "", fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}
	parsed, err := jwt.ParseString(raw, jwt.WithKey(algorithm, t.Secret))
	if err != nil {
		return "", err
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if t.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(t.ClockSkew))
	}
	if t.Issuer != "" {
		options = append(options, jwt.WithIssuer(t.Issuer))
	}
	if t.Audience != "" {
		options = append(options, jwt.WithAudience(t.Audience))
	}
	if err := jwt.Validate(parsed, options...); err != nil {
		return "", err
	}
	return parsed.Subject(), nil
}

// headerAlgorithm extracts the signature algorithm from the protected
// headers, refusing unsigned and mixed-algorithm tokens.
func headerAlgorithm(raw string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(raw)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
