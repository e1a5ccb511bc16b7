package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SignatureHeader carries the provider's JWT over the request body.
	SignatureHeader = "Upstash-Signature"
	// MessageIDHeader carries the provider message id.
	MessageIDHeader = "Upstash-Message-Id"
	// RetriedHeader carries how many times the provider has redelivered the message.
	RetriedHeader = "Upstash-Retried"

	signatureIssuer = "Upstash"
)

var (
	ErrMissingSignature  = errors.New("missing signature")
	ErrInvalidSignature  = errors.New("signature does not verify")
	ErrBodyHashMismatch  = errors.New("body hash does not match signature")
	ErrMissingSigningKey = errors.New("current signing key is required")
)

// Verifier checks that a request body was signed by the queue provider.
type Verifier interface {
	Verify(ctx context.Context, signature string, body []byte) error
}

type signatureClaims struct {
	Body string `json:"body"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256 signatures made with the current signing key,
// falling back to the next key during key rotation.
type JWTVerifier struct {
	currentKey []byte
	nextKey    []byte
	url        string           // expected subject; empty skips the check
	clockSkew  time.Duration    // leeway on exp/nbf
	timeFunc   func() time.Time // injectable for testing
}

// VerifierOption customizes a JWTVerifier.
type VerifierOption func(*JWTVerifier)

// WithClockSkew sets the leeway applied to time claims.
func WithClockSkew(d time.Duration) VerifierOption {
	return func(v *JWTVerifier) { v.clockSkew = d }
}

// WithTimeFunc replaces the clock used to validate time claims.
func WithTimeFunc(fn func() time.Time) VerifierOption {
	return func(v *JWTVerifier) { v.timeFunc = fn }
}

// NewJWTVerifier creates a verifier. url, when set, must match the token subject.
func NewJWTVerifier(currentKey, nextKey, url string, opts ...VerifierOption) (*JWTVerifier, error) {
	if currentKey == "" {
		return nil, ErrMissingSigningKey
	}
	v := &JWTVerifier{
		currentKey: []byte(currentKey),
		url:        url,
		clockSkew:  time.Minute,
		timeFunc:   time.Now,
	}
	if nextKey != "" {
		v.nextKey = []byte(nextKey)
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify checks signature against body.
func (v *JWTVerifier) Verify(_ context.Context, signature string, body []byte) error {
	if signature == "" {
		return ErrMissingSignature
	}

	err := v.verifyWithKey(v.currentKey, signature, body)
	if err == nil || v.nextKey == nil {
		return err
	}
	if nextErr := v.verifyWithKey(v.nextKey, signature, body); nextErr != nil {
		return errors.Join(err, nextErr)
	}
	return nil
}

func (v *JWTVerifier) verifyWithKey(key []byte, signature string, body []byte) error {
	now := v.timeFunc()
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(signatureIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if v.url != "" {
		parserOpts = append(parserOpts, jwt.WithSubject(v.url))
	}

	token, err := jwt.ParseWithClaims(signature, &signatureClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}, parserOpts...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	claims, ok := token.Claims.(*signatureClaims)
	if !ok || !token.Valid {
		return ErrInvalidSignature
	}

	sum := sha256.Sum256(body)
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	got := strings.TrimRight(claims.Body, "=")
	if !hmac.Equal([]byte(want), []byte(got)) {
		return ErrBodyHashMismatch
	}
	return nil
}
