package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/pkg/logger"
)

// Config holds the OAuth2 client settings for the identity provider
type Config struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

// Client performs the password and refresh grants
type Client struct {
	oauth      *oauth2.Config
	httpClient *http.Client
}

// TokenURL builds the OpenID Connect token endpoint of a realm
func TokenURL(baseURL, realm string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", strings.TrimRight(baseURL, "/"), realm)
}

// New creates an identity client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL:  TokenURL(cfg.BaseURL, cfg.Realm),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
	}
}

// PasswordGrant logs in with username and password
func (c *Client) PasswordGrant(ctx context.Context, username, password string) (domain.Credentials, error) {
	tok, err := c.oauth.PasswordCredentialsToken(c.context(ctx), username, password)
	if err != nil {
		return domain.Credentials{}, classify(ctx, "password_grant", err, true)
	}
	return credentialsFrom(tok)
}

// RefreshGrant exchanges a refresh token for a new token triple.
// No scope is sent; the identity provider keeps the one granted at login.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (domain.Credentials, error) {
	if refreshToken == "" {
		return domain.Credentials{}, domain.ErrNoCredentials
	}
	src := c.oauth.TokenSource(c.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return domain.Credentials{}, classify(ctx, "refresh_grant", err, false)
	}
	return credentialsFrom(tok)
}

func (c *Client) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func credentialsFrom(tok *oauth2.Token) (domain.Credentials, error) {
	idToken, _ := tok.Extra("id_token").(string)
	creds := domain.Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IDToken:      idToken,
	}
	if !creds.Complete() {
		return domain.Credentials{}, domain.NewError(domain.KindTransport, 0,
			"invalid response from identity server", errors.New("token response is missing a token"))
	}
	return creds, nil
}

// classify maps oauth2 failures onto the error taxonomy
func classify(ctx context.Context, op string, err error, login bool) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		logger.For(ctx, op).WithError(err).Warn("❌ Identity server unreachable")
		return domain.NewError(domain.KindTransport, 0, "", err)
	}

	status := re.Response.StatusCode
	detail := re.ErrorDescription
	if detail == "" {
		detail = re.ErrorCode
	}
	logger.For(ctx, op).WithField("status", status).WithField("error_code", re.ErrorCode).
		Warn("❌ Identity server rejected grant")

	if login && (status == http.StatusUnauthorized || status == http.StatusBadRequest) {
		return domain.NewError(domain.KindServerRejected, status, "invalid username or password", err)
	}
	switch status {
	case http.StatusForbidden:
		return domain.NewError(domain.KindForbidden, status, "", err)
	case http.StatusNotFound:
		return domain.NewError(domain.KindNotFound, status, "identity endpoint not found", err)
	}
	message := fmt.Sprintf("identity server error (%d)", status)
	if detail != "" {
		message = fmt.Sprintf("identity server error (%d): %s", status, detail)
	}
	return domain.NewError(domain.KindServerRejected, status, message, err)
}
