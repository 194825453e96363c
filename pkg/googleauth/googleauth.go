package googleauth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// Identity adalah hasil verifikasi ID token Google: pasangan yang sudah
// terverifikasi. Komponen lain hanya boleh percaya pada nilai ini.
type Identity struct {
	Email string
	Name  string
}

// Verifier menukar authorization code menjadi ID token lalu
// memverifikasi signature, audience (client id) dan expiry-nya.
type Verifier struct {
	oauth *oauth2.Config
}

func New(clientID, clientSecret, redirectURL string) *Verifier {
	return &Verifier{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// Exchange menukar one-time code dan mengembalikan identitas terverifikasi.
func (v *Verifier) Exchange(ctx context.Context, code string) (Identity, error) {
	token, err := v.oauth.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("googleauth: code exchange failed: %w", err)
	}

	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return Identity{}, errors.New("googleauth: token response has no id_token")
	}

	payload, err := idtoken.Validate(ctx, raw, v.oauth.ClientID)
	if err != nil {
		return Identity{}, fmt.Errorf("googleauth: id_token validation failed: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if email == "" {
		return Identity{}, errors.New("googleauth: id_token has no email claim")
	}
	return Identity{Email: email, Name: name}, nil
}
