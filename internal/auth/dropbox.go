package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"golang.org/x/oauth2"
)

const (
	dropboxName     = "dropbox"
	dropboxCredFile = "dropbox_credentials.json"
	callbackAddr    = "localhost:9999"
)

type dropboxCredentials struct {
	AppKey    string `json:"app_key"`
	AppSecret string `json:"app_secret"`
}

var dropboxEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.dropbox.com/oauth2/authorize",
	TokenURL: "https://api.dropboxapi.com/oauth2/token",
}

type dropboxProvider struct{}

func (p *dropboxProvider) Name() string {
	return dropboxName
}

func loadDropboxConfig() (*oauth2.Config, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(filepath.Join(dir, dropboxCredFile))
	if err != nil {
		return nil, fmt.Errorf("%s not found in %s: %w", dropboxCredFile, dir, err)
	}

	var creds dropboxCredentials
	if err := json.Unmarshal(b, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse dropbox credentials: %w", err)
	}

	return &oauth2.Config{
		ClientID:     creds.AppKey,
		ClientSecret: creds.AppSecret,
		Endpoint:     dropboxEndpoint,
		RedirectURL:  "http://" + callbackAddr + "/callback",
		Scopes:       []string{"files.metadata.read", "files.content.read"},
	}, nil
}

func (p *dropboxProvider) Authorize(ctx context.Context) error {
	cfg, err := loadDropboxConfig()
	if err != nil {
		return err
	}

	authURL := cfg.AuthCodeURL("state-token",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("token_access_type", "offline"))

	fmt.Println("Visit the URL for the auth dialog:")
	fmt.Println()
	fmt.Println(authURL)
	fmt.Println()

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprintln(w, "<h2>Authentication complete! Now you can close this window and return to the terminal.</h2>")
	})

	srv := &http.Server{Addr: callbackAddr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Println("Authentication will complete after you log on via browser...")

	select {
	case code := <-codeCh:
		token, err := cfg.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to exchange token: %w", err)
		}

		store, err := tokenStore()
		if err != nil {
			return err
		}

		if err := store.Save(dropboxName, token); err != nil {
			return err
		}

		fmt.Println("Dropbox token saved")
		return nil

	case <-ctx.Done():
		return ctx.Err()

	case <-time.After(2 * time.Minute):
		return fmt.Errorf("authorization timed out")
	}
}

func (p *dropboxProvider) NewClient(ctx context.Context) (files.Client, error) {
	cfg, err := loadDropboxConfig()
	if err != nil {
		return nil, err
	}

	tokenSource, err := refresh(ctx, cfg, dropboxName)
	if err != nil {
		return nil, err
	}

	token, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get dropbox token: %w", err)
	}

	return files.New(dropbox.Config{Token: token.AccessToken}), nil
}
