package remote

import (
	"context"
	"fmt"
	"gdsync/internal/auth"
)

// Connect authorizes against the provider of ref and returns its store.
func Connect(ctx context.Context, ref Ref) (Store, error) {
	switch ref.Provider {
	case ProviderGDrive:
		svc, err := auth.GDrive.NewService(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to authorize google drive: %w", err)
		}
		return NewGDriveStore(svc), nil

	case ProviderDropbox:
		client, err := auth.Dropbox.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to authorize dropbox: %w", err)
		}
		return NewDropboxStore(client), nil
	}

	return nil, fmt.Errorf("unknown provider %q", ref.Provider)
}
