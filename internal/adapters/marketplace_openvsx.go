package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"extension-mirror/internal/ports"
	"extension-mirror/internal/shared"
	"extension-mirror/internal/types"
)

const DefaultOpenVSXEndpoint = "https://open-vsx.org"

// OpenVSXMarketplaceAdapter reads the mirror registry through the Open VSX
// REST API. Query flags do not apply to it.
type OpenVSXMarketplaceAdapter struct {
	Endpoint string
	client   retryingClient
}

func NewOpenVSXMarketplaceAdapter(endpoint string, options HTTPOptions) OpenVSXMarketplaceAdapter {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultOpenVSXEndpoint
	}
	return OpenVSXMarketplaceAdapter{
		Endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		client:   newRetryingClient("open-vsx", options),
	}
}

type openVSXExtension struct {
	Namespace     string `json:"namespace"`
	Name          string `json:"name"`
	Version       string `json:"version"`
	Timestamp     string `json:"timestamp"`
	DownloadCount int64  `json:"downloadCount"`
	PreRelease    bool   `json:"preRelease"`
	Error         string `json:"error"`
}

func (a OpenVSXMarketplaceAdapter) GetExtension(ctx context.Context, id string, _ types.QueryFlags) (*types.MarketplaceSnapshot, error) {
	namespace, name, ok := strings.Cut(shared.NormalizeExtensionID(id), ".")
	if !ok || namespace == "" || name == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid extension id %q", id))
	}
	extensionURL := fmt.Sprintf("%s/api/%s/%s", a.Endpoint, url.PathEscape(namespace), url.PathEscape(name))
	response, err := a.client.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, extensionURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if response.Status == http.StatusNotFound {
		return nil, nil
	}
	if !response.OK() {
		return nil, response.statusError("open-vsx extension query failed")
	}
	var decoded openVSXExtension
	if err := json.Unmarshal(response.Body, &decoded); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to parse open-vsx response").
			WithCause(err)
	}
	if decoded.Error != "" || strings.TrimSpace(decoded.Version) == "" {
		return nil, nil
	}
	return &types.MarketplaceSnapshot{
		Version:       decoded.Version,
		LastUpdated:   parseTimeFlexible(decoded.Timestamp),
		InstallCount:  decoded.DownloadCount,
		PublisherName: decoded.Namespace,
		Prerelease:    decoded.PreRelease,
	}, nil
}

var _ ports.MarketplacePort = OpenVSXMarketplaceAdapter{}
