package domain

import (
	"context"
	"log/slog"
)

// LabelClusters reverse-geocodes every cluster center. With a nil geocoder the
// sites carry no place data. A failed lookup marks that site "failed" and
// moves on (graceful degradation); empty clusters are not looked up.
func LabelClusters(ctx context.Context, clusters ClusterResult, geocoder Geocoder, logger *slog.Logger) []ClusterSite {
	sites := make([]ClusterSite, len(clusters))
	for i, c := range clusters {
		sites[i] = ClusterSite{ClusterCount: c}
		if geocoder == nil {
			continue
		}
		if c.Count == 0 {
			sites[i].GeoSource = "original"
			continue
		}

		result, err := geocoder.ReverseGeocode(ctx, c.Center.Lat, c.Center.Lon)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"cluster", i,
				"lat", c.Center.Lat,
				"lon", c.Center.Lon,
				"error", err,
			)
			sites[i].GeoSource = "failed"
			continue
		}
		if result.FormattedAddress == "" {
			sites[i].GeoSource = "original"
			continue
		}
		sites[i].PlaceName = result.PlaceName
		sites[i].FormattedAddress = result.FormattedAddress
		sites[i].GeoSource = "reverse"
	}
	return sites
}
