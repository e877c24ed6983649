package remote

// PluginVersion is reported to the update and stats endpoints
const PluginVersion = "4.0.0"

// Device is the fingerprint sent with every remote call
type Device struct {
	Platform      string
	DeviceID      string
	AppID         string
	VersionBuild  string
	VersionCode   string
	VersionOS     string
	PluginVersion string
}

func (d Device) pluginVersion() string {
	if d.PluginVersion == "" {
		return PluginVersion
	}
	return d.PluginVersion
}
