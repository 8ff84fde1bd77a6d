package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	gdriveName      = "gdrive"
	credentialsFile = "gdrive_credentials.json"
)

type gdriveProvider struct{}

func (p *gdriveProvider) Name() string {
	return gdriveName
}

func loadOAuthConfig() (*oauth2.Config, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(filepath.Join(dir, credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("%s not found in %s: %w", credentialsFile, dir, err)
	}

	cfg, err := google.ConfigFromJSON(b, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return cfg, nil
}

func (p *gdriveProvider) Authorize(ctx context.Context) error {
	cfg, err := loadOAuthConfig()
	if err != nil {
		return err
	}

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Println("Visit the URL for the auth dialog:")
	fmt.Println()
	fmt.Println(authURL)
	fmt.Println()
	fmt.Print("Enter the code here: ")

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange token: %w", err)
	}

	store, err := tokenStore()
	if err != nil {
		return err
	}

	if err := store.Save(gdriveName, token); err != nil {
		return err
	}

	fmt.Println("Google Drive token saved")
	return nil
}

func (p *gdriveProvider) NewService(ctx context.Context) (*drive.Service, error) {
	cfg, err := loadOAuthConfig()
	if err != nil {
		return nil, err
	}

	tokenSource, err := refresh(ctx, cfg, gdriveName)
	if err != nil {
		return nil, err
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create gdrive service: %w", err)
	}

	return svc, nil
}
