package token

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIdentity struct {
	silentCalls     int
	credentialCalls int

	silentResult     confidential.AuthResult
	silentErr        error
	credentialResult confidential.AuthResult
	credentialErr    error
}

func (f *fakeIdentity) AcquireTokenSilent(ctx context.Context, scopes []string, opts ...confidential.AcquireSilentOption) (confidential.AuthResult, error) {
	f.silentCalls++
	return f.silentResult, f.silentErr
}

func (f *fakeIdentity) AcquireTokenByCredential(ctx context.Context, scopes []string, opts ...confidential.AcquireByCredentialOption) (confidential.AuthResult, error) {
	f.credentialCalls++
	return f.credentialResult, f.credentialErr
}

var scopes = []string{"https://contoso.sharepoint.com/.default"}

func emptyCache(t *testing.T) *FileCache {
	t.Helper()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "token_cache.json"), zap.NewNop())
	require.NoError(t, err)
	return c
}

func populatedCache(t *testing.T) *FileCache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token_cache.json")
	require.NoError(t, os.WriteFile(path, []byte(appTokenBlob), 0o600))
	c, err := NewFileCache(path, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestManager_EmptyCacheUsesCredentialFlowOnce(t *testing.T) {
	id := &fakeIdentity{credentialResult: confidential.AuthResult{AccessToken: "fresh", ExpiresOn: time.Now().Add(time.Hour)}}
	m := NewManager(id, emptyCache(t), scopes, zap.NewNop())

	tok, err := m.GetAccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "fresh", tok)
	assert.Equal(t, 0, id.silentCalls)
	assert.Equal(t, 1, id.credentialCalls)
}

func TestManager_CachedAccountSilentSuccess(t *testing.T) {
	id := &fakeIdentity{silentResult: confidential.AuthResult{AccessToken: "cached"}}
	m := NewManager(id, populatedCache(t), scopes, zap.NewNop())

	tok, err := m.GetAccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "cached", tok)
	assert.Equal(t, 1, id.silentCalls)
	assert.Equal(t, 0, id.credentialCalls)
}

func TestManager_SilentMissFallsBackToCredential(t *testing.T) {
	id := &fakeIdentity{
		silentErr:        errors.New("no token found"),
		credentialResult: confidential.AuthResult{AccessToken: "fresh"},
	}
	m := NewManager(id, populatedCache(t), scopes, zap.NewNop())

	tok, err := m.GetAccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "fresh", tok)
	assert.Equal(t, 1, id.silentCalls)
	assert.Equal(t, 1, id.credentialCalls)
}

func TestManager_CredentialFailureIsReturned(t *testing.T) {
	id := &fakeIdentity{credentialErr: errors.New("AADSTS7000215: invalid client secret")}
	m := NewManager(id, nil, scopes, zap.NewNop())

	tok, err := m.GetAccessToken(context.Background())
	require.Error(t, err)

	assert.Empty(t, tok)
	assert.Contains(t, err.Error(), "invalid client secret")
	assert.Equal(t, 1, id.credentialCalls)
}

func TestManager_EmptyTokenIsAnError(t *testing.T) {
	id := &fakeIdentity{}
	m := NewManager(id, emptyCache(t), scopes, zap.NewNop())

	_, err := m.GetAccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}
