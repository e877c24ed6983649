package root

import (
	"fmt"
	"io"
	"time"

	"github.com/GriffinCanCode/AgentOS/updater/internal/domain/bundle"
	"github.com/GriffinCanCode/AgentOS/updater/internal/remote"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Output formats accepted by --output
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

type bundleView struct {
	ID         string `json:"id" yaml:"id" toml:"id"`
	Version    string `json:"version" yaml:"version" toml:"version"`
	Status     string `json:"status" yaml:"status" toml:"status"`
	Downloaded string `json:"downloaded,omitempty" yaml:"downloaded,omitempty" toml:"downloaded,omitempty"`
}

func viewOf(info bundle.Info) bundleView {
	v := bundleView{
		ID:      info.ID,
		Version: info.Version,
		Status:  info.Status.String(),
	}
	if !info.Downloaded.IsZero() {
		v.Downloaded = info.Downloaded.Format(time.RFC3339)
	}
	return v
}

func viewsOf(infos []bundle.Info) []bundleView {
	views := make([]bundleView, 0, len(infos))
	for _, info := range infos {
		views = append(views, viewOf(info))
	}
	return views
}

type latestView struct {
	Version string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	URL     string `json:"url" yaml:"url" toml:"url"`
	Message string `json:"message,omitempty" yaml:"message,omitempty" toml:"message,omitempty"`
	Major   bool   `json:"major" yaml:"major" toml:"major"`
}

func latestOf(v *remote.AppVersion) latestView {
	return latestView{Version: v.Version, URL: v.URL, Message: v.Message, Major: v.Major}
}

// TOML documents must be tables, so lists are nested under a key
type bundleList struct {
	Bundles []bundleView `toml:"bundles"`
}

func validFormat(format string) error {
	switch format {
	case FormatJSON, FormatYAML, FormatTOML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (json, yaml or toml)", format)
	}
}

func render(w io.Writer, format string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(v)
	case FormatTOML:
		if views, ok := v.([]bundleView); ok {
			v = bundleList{Bundles: views}
		}
		data, err = toml.Marshal(v)
	default:
		data, err = sonic.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("%s encoding error: %w", format, err)
	}

	_, err = w.Write(data)
	return err
}
