// Package token acquires bearer tokens for SharePoint through the Microsoft
// identity platform, reusing a file-backed token cache between runs.
package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"
	"github.com/natserract/splist/pkg/config"
	httpclient "github.com/natserract/splist/pkg/http"
	"go.uber.org/zap"
)

// ErrNoToken is returned when the identity provider answers without a token.
var ErrNoToken = errors.New("token: no access token returned")

// IdentityClient is the subset of the confidential client used by Manager.
type IdentityClient interface {
	AcquireTokenSilent(ctx context.Context, scopes []string, opts ...confidential.AcquireSilentOption) (confidential.AuthResult, error)
	AcquireTokenByCredential(ctx context.Context, scopes []string, opts ...confidential.AcquireByCredentialOption) (confidential.AuthResult, error)
}

// Manager hands out access tokens: cached first, client credentials otherwise.
type Manager struct {
	client IdentityClient
	cache  *FileCache
	scopes []string
	logger *zap.Logger
}

func NewManager(client IdentityClient, cache *FileCache, scopes []string, logger *zap.Logger) *Manager {
	return &Manager{
		client: client,
		cache:  cache,
		scopes: scopes,
		logger: logger,
	}
}

// NewConfidential builds a confidential client for cfg that persists its
// state through fileCache and sends requests with httpClient. extra options
// are applied last.
func NewConfidential(cfg *config.Config, fileCache *FileCache, httpClient *httpclient.Client, extra ...confidential.Option) (confidential.Client, error) {
	cred, err := confidential.NewCredFromSecret(cfg.ClientSecret)
	if err != nil {
		return confidential.Client{}, fmt.Errorf("could not create a credential from the client secret: %w", err)
	}

	opts := []confidential.Option{confidential.WithHTTPClient(httpClient)}
	if fileCache != nil {
		opts = append(opts, confidential.WithCache(fileCache))
	}
	opts = append(opts, extra...)

	client, err := confidential.New(cfg.Authority(), cfg.ClientID, cred, opts...)
	if err != nil {
		return confidential.Client{}, fmt.Errorf("failed to create confidential client: %w", err)
	}
	return client, nil
}

// GetAccessToken returns a bearer token for the configured scopes.
func (m *Manager) GetAccessToken(ctx context.Context) (string, error) {
	result, err := m.Acquire(ctx)
	if err != nil {
		return "", err
	}
	return result.AccessToken, nil
}

// Acquire tries silent acquisition when the cache holds entries and falls
// back to the client-credential flow. Each path is attempted once.
func (m *Manager) Acquire(ctx context.Context) (confidential.AuthResult, error) {
	if m.cache != nil && m.cache.Cached() {
		result, err := m.client.AcquireTokenSilent(ctx, m.scopes)
		if err == nil && result.AccessToken != "" {
			m.logger.Debug("Using cached access token", zap.Time("expires_on", result.ExpiresOn))
			return result, nil
		}
		m.logger.Info("Silent token acquisition failed, requesting a new token", zap.Error(err))
	} else {
		m.logger.Info("No cached account, requesting a new token")
	}

	result, err := m.client.AcquireTokenByCredential(ctx, m.scopes)
	if err != nil {
		m.logger.Error("Failed to acquire token", zap.Strings("scopes", m.scopes), zap.Error(err))
		return confidential.AuthResult{}, fmt.Errorf("failed to acquire token: %w", err)
	}
	if result.AccessToken == "" {
		m.logger.Error("Token response carried no access token", zap.Strings("scopes", m.scopes))
		return confidential.AuthResult{}, ErrNoToken
	}

	m.logger.Info("Successfully acquired access token", zap.Time("expires_on", result.ExpiresOn))
	return result, nil
}
