package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"gdsync/internal/logger"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrNotAuthorized means no usable token is stored for a provider.
var ErrNotAuthorized = errors.New("not authorized")

const keyringService = "gdsync"

// TokenStore persists OAuth tokens by provider name.
type TokenStore interface {
	Save(name string, token *oauth2.Token) error
	Load(name string) (*oauth2.Token, error)
	Delete(name string) error
	// Where describes where the token of name is kept, for messages.
	Where(name string) string
}

var tokens TokenStore

// UseTokenStore replaces the store used by the providers.
func UseTokenStore(s TokenStore) {
	tokens = s
}

// NewTokenStore builds the store named by the token_store config key.
func NewTokenStore(kind, dir string) TokenStore {
	if kind == "keyring" {
		return KeyringStore{Service: keyringService}
	}

	return FileStore{Dir: dir}
}

// TokenLocation describes where the token of provider name is kept.
func TokenLocation(name string) (string, error) {
	store, err := tokenStore()
	if err != nil {
		return "", err
	}

	return store.Where(name), nil
}

func tokenStore() (TokenStore, error) {
	if tokens != nil {
		return tokens, nil
	}

	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	tokens = FileStore{Dir: dir}
	return tokens, nil
}

// FileStore keeps each token in <dir>/<name>_token.json.
type FileStore struct {
	Dir string
}

func (s FileStore) path(name string) string {
	return filepath.Join(s.Dir, name+"_token.json")
}

func (s FileStore) Where(name string) string {
	return s.path(name)
}

func (s FileStore) Save(name string, token *oauth2.Token) error {
	b, err := json.Marshal(token)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}

	if err := os.WriteFile(s.path(name), b, 0600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

func (s FileStore) Load(name string) (*oauth2.Token, error) {
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no %s token: %w", name, ErrNotAuthorized)
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	return decodeToken(name, b)
}

func (s FileStore) Delete(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return nil
}

// KeyringStore keeps tokens in the OS secret store.
type KeyringStore struct {
	Service string
}

func (s KeyringStore) Where(name string) string {
	return fmt.Sprintf("system keyring (service %q, account %q)", s.Service, name)
}

func (s KeyringStore) Save(name string, token *oauth2.Token) error {
	b, err := json.Marshal(token)
	if err != nil {
		return err
	}

	if err := keyring.Set(s.Service, name, string(b)); err != nil {
		return fmt.Errorf("failed to save token to keyring: %w", err)
	}

	return nil
}

func (s KeyringStore) Load(name string) (*oauth2.Token, error) {
	secret, err := keyring.Get(s.Service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("no %s token: %w", name, ErrNotAuthorized)
		}
		return nil, fmt.Errorf("failed to read token from keyring: %w", err)
	}

	return decodeToken(name, []byte(secret))
}

func (s KeyringStore) Delete(name string) error {
	if err := keyring.Delete(s.Service, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}

	return nil
}

func decodeToken(name string, b []byte) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(b, &token); err != nil {
		return nil, fmt.Errorf("failed to parse %s token: %w", name, err)
	}

	return &token, nil
}

// refresh returns a token source for the stored token, persisting a rotated
// token. A token that cannot be refreshed is deleted.
func refresh(ctx context.Context, cfg *oauth2.Config, name string) (oauth2.TokenSource, error) {
	store, err := tokenStore()
	if err != nil {
		return nil, err
	}

	token, err := store.Load(name)
	if err != nil {
		return nil, err
	}

	tokenSource := cfg.TokenSource(ctx, token)

	newToken, err := tokenSource.Token()
	if err != nil {
		logger.Log.Warn("token refresh failed, removing stored token",
			zap.String("provider", name),
			zap.Error(err))
		_ = store.Delete(name)
		return nil, fmt.Errorf("%s: %w: %v", name, ErrNotAuthorized, err)
	}

	if newToken.AccessToken != token.AccessToken {
		if err := store.Save(name, newToken); err != nil {
			logger.Log.Warn("failed to persist refreshed token", zap.String("provider", name), zap.Error(err))
		}
	}

	return oauth2.ReuseTokenSource(newToken, tokenSource), nil
}
