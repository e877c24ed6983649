package remote

import (
	"context"
	"fmt"
)

// AppVersion is the update offered by the check-latest endpoint
type AppVersion struct {
	Version string
	URL     string
	Message string
	Major   bool
}

type latestRequest struct {
	Platform      string `json:"platform"`
	DeviceID      string `json:"device_id"`
	AppID         string `json:"app_id"`
	VersionBuild  string `json:"version_build"`
	VersionCode   string `json:"version_code"`
	VersionOS     string `json:"version_os"`
	PluginVersion string `json:"plugin_version"`
	VersionName   string `json:"version_name"`
}

type latestResponse struct {
	Version *string `json:"version"`
	URL     *string `json:"url"`
	Message *string `json:"message"`
	Major   *bool   `json:"major"`
}

// CheckLatest asks endpoint for the newest bundle. It blocks until the
// round-trip completes. A nil result with a nil error means no update.
func (c *Client) CheckLatest(ctx context.Context, endpoint string, device Device, versionName string) (*AppVersion, error) {
	body := latestRequest{
		Platform:      device.Platform,
		DeviceID:      device.DeviceID,
		AppID:         device.AppID,
		VersionBuild:  device.VersionBuild,
		VersionCode:   device.VersionCode,
		VersionOS:     device.VersionOS,
		PluginVersion: device.pluginVersion(),
		VersionName:   versionName,
	}

	var resp latestResponse
	err := c.latest.Execute(func() error {
		return c.PostJSON(ctx, endpoint, body, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("check latest: %w", err)
	}

	if resp.URL == nil || *resp.URL == "" {
		return nil, nil
	}

	latest := &AppVersion{URL: *resp.URL}
	if resp.Version != nil {
		latest.Version = *resp.Version
	}
	if resp.Message != nil {
		latest.Message = *resp.Message
	}
	if resp.Major != nil {
		latest.Major = *resp.Major
	}
	return latest, nil
}
