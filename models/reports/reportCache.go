package reports

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/utils"
)

func logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]any) {
	elapsed := time.Since(started)
	logger := config.GetLogger()
	if elapsed < config.ReportSlowThreshold() || logger == nil {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	logger.WithFields(logrus.Fields{
		"field":          "report",
		"name":           name,
		"ms":             elapsed.Milliseconds(),
		"correlation_id": cid,
		"extra":          extra,
	}).Warn("slow report")
}

// cacheGet is a miss whenever the cache is disabled or Redis is absent.
func cacheGet[T any](key string, dest *T) (bool, error) {
	if !config.ReportCacheEnabled() {
		return false, nil
	}
	return config.GetRedisObject(key, dest)
}

func cacheSet(key string, obj any) error {
	if !config.ReportCacheEnabled() {
		return nil
	}
	return config.SetRedisObject(key, obj, config.ReportCacheTTL())
}
