package auth

import (
	"context"
	"gdsync/internal/config"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"google.golang.org/api/drive/v3"
)

type Provider interface {
	Name() string
	Authorize(ctx context.Context) error
}

type GDriveProvider interface {
	Provider
	NewService(ctx context.Context) (*drive.Service, error)
}

type DropboxProvider interface {
	Provider
	NewClient(ctx context.Context) (files.Client, error)
}

var (
	GDrive  GDriveProvider  = &gdriveProvider{}
	Dropbox DropboxProvider = &dropboxProvider{}
)

// Lookup returns the provider registered under name.
func Lookup(name string) (Provider, bool) {
	switch name {
	case GDrive.Name():
		return GDrive, true
	case Dropbox.Name():
		return Dropbox, true
	}

	return nil, false
}

func configDir() (string, error) {
	return config.Dir()
}
