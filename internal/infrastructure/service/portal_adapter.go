// Package service contains adapters that bridge infrastructure clients
// to the interfaces the application layer defines.
package service

import (
	"context"

	"github.com/mystat-hub/mystat-reminder-bot/internal/application/token"
	"github.com/mystat-hub/mystat-reminder-bot/internal/infrastructure/external/mystat"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTAL AUTH ADAPTER
// Adapts the MyStat client to the token manager's PortalAuth interface.
// ══════════════════════════════════════════════════════════════════════════════

// PortalAuthAdapter implements token.PortalAuth on top of the MyStat client.
type PortalAuthAdapter struct {
	client *mystat.Client
}

// NewPortalAuthAdapter creates a new adapter.
func NewPortalAuthAdapter(client *mystat.Client) *PortalAuthAdapter {
	return &PortalAuthAdapter{client: client}
}

// Login authenticates against the journal and returns the token grant.
func (a *PortalAuthAdapter) Login(ctx context.Context, username, password string) (token.Grant, error) {
	resp, err := a.client.Login(ctx, username, password)
	if err != nil {
		return token.Grant{}, err
	}
	return grantFromAuth(resp), nil
}

// Refresh exchanges the refresh token for a new grant.
func (a *PortalAuthAdapter) Refresh(ctx context.Context, refreshToken string) (token.Grant, error) {
	resp, err := a.client.Refresh(ctx, refreshToken)
	if err != nil {
		return token.Grant{}, err
	}
	return grantFromAuth(resp), nil
}

func grantFromAuth(resp *mystat.AuthResponse) token.Grant {
	return token.Grant{
		AccessToken:     resp.AccessToken,
		RefreshToken:    resp.RefreshToken,
		ExpiresInAccess: resp.ExpiresInAccess,
		CityData:        resp.CityDataString(),
	}
}
