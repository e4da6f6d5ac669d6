package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"extension-mirror/internal/ports"
	"extension-mirror/internal/shared"
	"extension-mirror/internal/types"
)

const DefaultGalleryEndpoint = "https://marketplace.visualstudio.com"

const galleryAPIVersion = "application/json;api-version=3.0-preview.1"
const galleryFilterExtensionName = 7
const galleryPreReleaseProperty = "Microsoft.VisualStudio.Code.PreRelease"
const galleryInstallStatistic = "install"

// GalleryMarketplaceAdapter queries the VS Code Marketplace gallery
// extensionquery API.
type GalleryMarketplaceAdapter struct {
	Endpoint string
	client   retryingClient
}

func NewGalleryMarketplaceAdapter(endpoint string, options HTTPOptions) GalleryMarketplaceAdapter {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultGalleryEndpoint
	}
	return GalleryMarketplaceAdapter{
		Endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		client:   newRetryingClient("gallery", options),
	}
}

type galleryQuery struct {
	Filters    []galleryFilter `json:"filters"`
	AssetTypes []string        `json:"assetTypes"`
	Flags      int             `json:"flags"`
}

type galleryFilter struct {
	Criteria   []galleryCriterion `json:"criteria"`
	PageNumber int                `json:"pageNumber"`
	PageSize   int                `json:"pageSize"`
	SortBy     int                `json:"sortBy"`
	SortOrder  int                `json:"sortOrder"`
}

type galleryCriterion struct {
	FilterType int    `json:"filterType"`
	Value      string `json:"value"`
}

type galleryResponse struct {
	Results []struct {
		Extensions []galleryExtension `json:"extensions"`
	} `json:"results"`
}

type galleryExtension struct {
	ExtensionName string `json:"extensionName"`
	Publisher     struct {
		PublisherName string `json:"publisherName"`
		DisplayName   string `json:"displayName"`
	} `json:"publisher"`
	LastUpdated string             `json:"lastUpdated"`
	Versions    []galleryVersion   `json:"versions"`
	Statistics  []galleryStatistic `json:"statistics"`
}

type galleryVersion struct {
	Version     string            `json:"version"`
	LastUpdated string            `json:"lastUpdated"`
	Properties  []galleryProperty `json:"properties"`
}

type galleryProperty struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type galleryStatistic struct {
	StatisticName string  `json:"statisticName"`
	Value         float64 `json:"value"`
}

func (a GalleryMarketplaceAdapter) GetExtension(ctx context.Context, id string, flags types.QueryFlags) (*types.MarketplaceSnapshot, error) {
	id = shared.NormalizeExtensionID(id)
	if id == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("extension id is empty")
	}
	if flags == types.QueryFlagNone {
		flags = types.DefaultQueryFlags
	}
	payload, err := json.Marshal(galleryQuery{
		Filters: []galleryFilter{{
			Criteria:   []galleryCriterion{{FilterType: galleryFilterExtensionName, Value: id}},
			PageNumber: 1,
			PageSize:   1,
		}},
		AssetTypes: []string{},
		Flags:      int(flags),
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode gallery query").
			WithCause(err)
	}
	queryURL := a.Endpoint + "/_apis/public/gallery/extensionquery"
	response, err := a.client.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, queryURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", galleryAPIVersion)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if !response.OK() {
		return nil, response.statusError("gallery extension query failed")
	}
	var decoded galleryResponse
	if err := json.Unmarshal(response.Body, &decoded); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to parse gallery response").
			WithCause(err)
	}
	for _, result := range decoded.Results {
		for _, extension := range result.Extensions {
			if shared.NormalizeExtensionID(extension.Publisher.PublisherName+"."+extension.ExtensionName) != id {
				continue
			}
			return gallerySnapshot(extension), nil
		}
	}
	return nil, nil
}

// gallerySnapshot describes the newest stable version. Versions are listed
// newest first; a package with only prereleases reports its newest one.
func gallerySnapshot(extension galleryExtension) *types.MarketplaceSnapshot {
	if len(extension.Versions) == 0 {
		return nil
	}
	chosen := extension.Versions[0]
	prerelease := isGalleryPrerelease(chosen)
	for _, version := range extension.Versions {
		if !isGalleryPrerelease(version) {
			chosen = version
			prerelease = false
			break
		}
	}
	lastUpdated := parseTimeFlexible(chosen.LastUpdated)
	if lastUpdated.IsZero() {
		lastUpdated = parseTimeFlexible(extension.LastUpdated)
	}
	return &types.MarketplaceSnapshot{
		Version:       chosen.Version,
		LastUpdated:   lastUpdated,
		InstallCount:  galleryInstalls(extension.Statistics),
		PublisherName: extension.Publisher.PublisherName,
		Prerelease:    prerelease,
	}
}

func isGalleryPrerelease(version galleryVersion) bool {
	for _, property := range version.Properties {
		if property.Key == galleryPreReleaseProperty {
			return strings.EqualFold(strings.TrimSpace(property.Value), "true")
		}
	}
	return false
}

func galleryInstalls(statistics []galleryStatistic) int64 {
	for _, statistic := range statistics {
		if statistic.StatisticName == galleryInstallStatistic {
			return int64(statistic.Value)
		}
	}
	return 0
}

func (a GalleryMarketplaceAdapter) String() string {
	return fmt.Sprintf("gallery(%s)", a.Endpoint)
}

var _ ports.MarketplacePort = GalleryMarketplaceAdapter{}
