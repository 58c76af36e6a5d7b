package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOAuthClient() *OAuthClientConfig {
	return &OAuthClientConfig{
		Installed: OAuthInstalled{
			ClientID:                "race-roster.apps.googleusercontent.com",
			ProjectID:               "race-roster",
			AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
			TokenURI:                "https://oauth2.googleapis.com/token",
			AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
			ClientSecret:            "secret",
			RedirectURIs:            []string{"http://localhost"},
		},
	}
}

func TestValidateOAuthClient(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *OAuthClientConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *OAuthClientConfig) {}},
		{name: "missing client id", mutate: func(c *OAuthClientConfig) { c.Installed.ClientID = "" }, wantErr: true},
		{name: "invalid auth uri", mutate: func(c *OAuthClientConfig) { c.Installed.AuthURI = "not-a-valid-url" }, wantErr: true},
		{name: "no redirect uris", mutate: func(c *OAuthClientConfig) { c.Installed.RedirectURIs = []string{} }, wantErr: true},
		{name: "invalid redirect uri", mutate: func(c *OAuthClientConfig) { c.Installed.RedirectURIs = []string{"not a valid uri"} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validOAuthClient()
			tt.mutate(cfg)

			err := ValidateOAuthClient(cfg)

			if tt.wantErr {
				assert.ErrorContains(t, err, "validation failed")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadOAuthClientFromPath_ValidConfig(t *testing.T) {
	oauthPath := filepath.Join(t.TempDir(), "oauthClient.json")
	err := os.WriteFile(oauthPath, []byte(`{
  "installed": {
    "client_id": "race-roster.apps.googleusercontent.com",
    "project_id": "race-roster",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "auth_provider_x509_cert_url": "https://www.googleapis.com/oauth2/v1/certs",
    "client_secret": "secret",
    "redirect_uris": ["http://localhost:3000", "urn:ietf:wg:oauth:2.0:oob"]
  }
}`), 0644)
	require.NoError(t, err)

	cfg, err := LoadOAuthClientFromPath(oauthPath)

	require.NoError(t, err)
	assert.Equal(t, "race-roster.apps.googleusercontent.com", cfg.Installed.ClientID)
	assert.Len(t, cfg.Installed.RedirectURIs, 2)
}

func TestLoadOAuthClientFromPath_Errors(t *testing.T) {
	dir := t.TempDir()
	invalidJSON := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalidJSON, []byte(`{"installed": {"client_id": "x" "project_id": "y"}}`), 0644))
	missingField := filepath.Join(dir, "missing.json")
	require.NoError(t, os.WriteFile(missingField, []byte(`{"installed": {"client_id": "x"}}`), 0644))

	_, err := LoadOAuthClientFromPath(invalidJSON)
	assert.ErrorContains(t, err, "failed to parse oauth client file")

	_, err = LoadOAuthClientFromPath(missingField)
	assert.ErrorContains(t, err, "validation failed")

	_, err = LoadOAuthClientFromPath(filepath.Join(dir, "absent.json"))
	assert.ErrorContains(t, err, "failed to read oauth client file")
}
