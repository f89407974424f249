package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kaylum54/Cliperus-V2/config"
	"github.com/kaylum54/Cliperus-V2/constant"
	"github.com/kaylum54/Cliperus-V2/entities"
)

const twitchTokenCacheKey = "cliperus:twitch:app_token"

// NewPlatformCheckers builds the per-platform liveness checkers from the
// monitor configuration. The cache may be nil; the Twitch checker then
// exchanges a fresh app token every pass.
func NewPlatformCheckers(cfg config.Monitor, cache *redis.Client) map[constant.Platform]LivenessChecker {
	client := &http.Client{Timeout: cfg.RequestTimeout}
	return map[constant.Platform]LivenessChecker{
		constant.PlatformTwitch: &TwitchChecker{
			ClientID:     cfg.TwitchClientID,
			ClientSecret: cfg.TwitchClientSecret,
			client:       client,
			cache:        cache,
			tokenURL:     "https://id.twitch.tv/oauth2/token",
			apiURL:       "https://api.twitch.tv/helix/streams",
		},
		constant.PlatformYouTube: &YouTubeChecker{
			APIKey: cfg.YouTubeAPIKey,
			client: client,
			apiURL: "https://www.googleapis.com/youtube/v3/search",
		},
		constant.PlatformKick: &KickChecker{
			client: client,
			apiURL: "https://kick.com/api/v2/channels",
		},
	}
}

// TwitchChecker queries the Helix streams endpoint with an app access token
// obtained via the client-credentials grant. Tokens are cached because they
// outlive many monitor passes.
type TwitchChecker struct {
	ClientID     string
	ClientSecret string
	client       *http.Client
	cache        *redis.Client
	tokenURL     string
	apiURL       string
}

func (c *TwitchChecker) Check(ctx context.Context, channel *entities.Channel) (bool, error) {
	if c.ClientID == "" {
		return false, nil
	}

	token := c.appToken(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?user_login=%s", c.apiURL, url.QueryEscape(channel.Name)), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Client-ID", c.ClientID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("twitch api returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, err
	}
	return len(payload.Data) > 0, nil
}

func (c *TwitchChecker) appToken(ctx context.Context) string {
	if c.ClientSecret == "" {
		return ""
	}
	if c.cache != nil {
		if token, err := c.cache.Get(ctx, twitchTokenCacheKey).Result(); err == nil && token != "" {
			return token
		}
	}

	form := url.Values{
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return ""
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("twitch token exchange failed")
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		zerolog.Ctx(ctx).Error().Int("status", resp.StatusCode).Msg("twitch token exchange rejected")
		return ""
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}

	if c.cache != nil && payload.AccessToken != "" {
		ttl := time.Duration(payload.ExpiresIn) * time.Second
		if ttl > time.Minute {
			ttl -= time.Minute
		}
		if err := c.cache.Set(ctx, twitchTokenCacheKey, payload.AccessToken, ttl).Err(); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to cache twitch app token")
		}
	}
	return payload.AccessToken
}

// YouTubeChecker searches the Data API for a live event on the channel. The
// stored channel identity must carry the platform channel ID; name-based
// resolution is left to channel setup.
type YouTubeChecker struct {
	APIKey string
	client *http.Client
	apiURL string
}

func (c *YouTubeChecker) Check(ctx context.Context, channel *entities.Channel) (bool, error) {
	if c.APIKey == "" || channel.ChannelID == "" {
		return false, nil
	}

	query := url.Values{
		"part":       {"snippet"},
		"channelId":  {channel.ChannelID},
		"eventType":  {"live"},
		"type":       {"video"},
		"key":        {c.APIKey},
		"maxResults": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+query.Encode(), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("youtube api returned status %d", resp.StatusCode)
	}

	var payload struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, err
	}
	return len(payload.Items) > 0, nil
}

// KickChecker uses Kick's public channel endpoint; it needs no credentials
// but rejects requests without a browser user agent.
type KickChecker struct {
	client *http.Client
	apiURL string
}

func (c *KickChecker) Check(ctx context.Context, channel *entities.Channel) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.apiURL, url.PathEscape(channel.Name)), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("kick api returned status %d", resp.StatusCode)
	}

	var payload struct {
		Livestream *struct {
			IsLive bool `json:"is_live"`
		} `json:"livestream"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, err
	}
	return payload.Livestream != nil && payload.Livestream.IsLive, nil
}
