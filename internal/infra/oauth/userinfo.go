package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func fetchGoogleIdentity(ctx context.Context, accessToken string) (Identity, error) {
	var info googleUserInfo
	if err := getJSON(ctx, "https://www.googleapis.com/oauth2/v2/userinfo", accessToken, nil, &info); err != nil {
		return Identity{}, fmt.Errorf("fetch google user info: %w", err)
	}

	return Identity{
		Provider:   ProviderGoogle,
		ProviderID: info.ID,
		Email:      info.Email,
		Name:       info.Name,
		AvatarURL:  info.Picture,
	}, nil
}

type githubUserInfo struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

var githubHeaders = map[string]string{"Accept": "application/vnd.github.v3+json"}

func fetchGitHubIdentity(ctx context.Context, accessToken string) (Identity, error) {
	var info githubUserInfo
	if err := getJSON(ctx, "https://api.github.com/user", accessToken, githubHeaders, &info); err != nil {
		return Identity{}, fmt.Errorf("fetch github user info: %w", err)
	}

	identity := Identity{
		Provider:   ProviderGitHub,
		ProviderID: fmt.Sprintf("%d", info.ID),
		Email:      info.Email,
		Name:       info.Name,
		Login:      info.Login,
		AvatarURL:  info.AvatarURL,
	}

	// The /user endpoint omits the email unless it is public; fall back to
	// the primary address from the emails API.
	if identity.Email == "" {
		email, err := fetchGitHubPrimaryEmail(ctx, accessToken)
		if err == nil {
			identity.Email = email
		}
	}

	return identity, nil
}

type githubEmail struct {
	Email   string `json:"email"`
	Primary bool   `json:"primary"`
}

func fetchGitHubPrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []githubEmail
	if err := getJSON(ctx, "https://api.github.com/user/emails", accessToken, githubHeaders, &emails); err != nil {
		return "", fmt.Errorf("fetch github emails: %w", err)
	}

	for _, e := range emails {
		if e.Primary {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", fmt.Errorf("no email found for github user")
}

func getJSON(ctx context.Context, url, accessToken string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
