package googfit

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ScopeActivityRead grants access to steps and activity segments
const ScopeActivityRead = "https://www.googleapis.com/auth/fitness.activity.read"

// ScopeLocationRead grants access to distance samples
const ScopeLocationRead = "https://www.googleapis.com/auth/fitness.location.read"

// Scopes required by DailySteps and DailyConcept2
var Scopes = []string{ScopeActivityRead, ScopeLocationRead}

// Credentials is the persisted refresh credential
type Credentials struct {
	RefreshToken string `json:"refresh_token"`
}

// OAuth2Config parses a Google client secret file ({"installed": {...}} or {"web": {...}})
func OAuth2Config(clientSecret []byte) (*oauth2.Config, error) {
	config, err := google.ConfigFromJSON(clientSecret, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secret: %w", err)
	}
	return config, nil
}

// ReadOAuth2Config reads and parses a Google client secret file
func ReadOAuth2Config(filename string) (*oauth2.Config, error) {
	val, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return OAuth2Config(val)
}

// ReadCredentials reads a credential file holding the refresh token
func ReadCredentials(filename string) (*Credentials, error) {
	val, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err = json.Unmarshal(val, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", filename, err)
	}
	if creds.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh_token in %s", filename)
	}
	return &creds, nil
}

// WriteCredentials persists the refresh token of `token` to `filename`
func WriteCredentials(filename string, token *oauth2.Token) error {
	if token.RefreshToken == "" {
		return fmt.Errorf("token has no refresh token")
	}
	val, err := json.MarshalIndent(&Credentials{RefreshToken: token.RefreshToken}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, val, 0600)
}
