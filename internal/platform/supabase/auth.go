package supabase

import (
	"context"
	"encoding/json"
	"fmt"
)

// AuthClient handles GoTrue auth operations.
type AuthClient struct {
	client *Client
}

// SignUp creates a new auth identity.
func (a *AuthClient) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, statusCode, err := a.client.request(ctx, "POST", a.client.authURL+"/signup", body, nil)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &session, nil
}

// SignInWithPassword authenticates with email and password.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	req := map[string]string{"email": email, "password": password}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, statusCode, err := a.client.request(ctx, "POST", a.client.authURL+"/token?grant_type=password", body, nil)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &session, nil
}

// RefreshToken exchanges a refresh token for a new session.
func (a *AuthClient) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	req := map[string]string{"refresh_token": refreshToken}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, statusCode, err := a.client.request(ctx, "POST", a.client.authURL+"/token?grant_type=refresh_token", body, nil)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &session, nil
}

// GetUser retrieves the identity behind an access token.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	respBody, statusCode, err := a.client.requestWithToken(ctx, "GET", a.client.authURL+"/user", nil, nil, accessToken)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}

	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &user, nil
}

// UpdateUser updates the current identity's credentials or metadata.
func (a *AuthClient) UpdateUser(ctx context.Context, accessToken string, updates map[string]any) (*User, error) {
	body, err := json.Marshal(updates)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, statusCode, err := a.client.requestWithToken(ctx, "PUT", a.client.authURL+"/user", body, nil, accessToken)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}

	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &user, nil
}

// SignOut revokes the token's session on the platform.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	respBody, statusCode, err := a.client.requestWithToken(ctx, "POST", a.client.authURL+"/logout", nil, nil, accessToken)
	if err != nil {
		return err
	}
	if statusCode >= 400 {
		return parseError(respBody, statusCode)
	}
	return nil
}

// AdminDeleteUser deletes an auth identity. Requires the service key.
func (a *AuthClient) AdminDeleteUser(ctx context.Context, userID string) error {
	respBody, statusCode, err := a.client.requestWithServiceKey(ctx, "DELETE", a.client.authURL+"/admin/users/"+userID, nil, nil)
	if err != nil {
		return err
	}
	if statusCode >= 400 {
		return parseError(respBody, statusCode)
	}
	return nil
}
