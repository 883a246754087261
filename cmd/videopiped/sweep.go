package main

import (
	"context"
	"time"

	"videopipe/internal/catalog"
	"videopipe/internal/layout"
	"videopipe/internal/logging"
	"videopipe/internal/metrics"
	"videopipe/internal/mosaic"
	"videopipe/internal/preview"
	"videopipe/internal/startup"
)

// statsAdapter wraps the catalog to satisfy metrics.StatsProvider, mirroring
// the teacher's dbStatsAdapter pattern of translating one package's stats
// struct into another's at the boundary.
type statsAdapter struct {
	cat *catalog.Catalog
}

func (a *statsAdapter) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stats, err := a.cat.Stats(ctx)
	if err != nil {
		logging.Warn("stats adapter: failed to load catalog stats: %v", err)
		return metrics.Stats{}
	}
	return metrics.Stats{
		TotalVideos:       stats.TotalVideos,
		TotalFolders:      stats.TotalFolders,
		TotalSmartFolders: stats.TotalSmartFolders,
		TotalPlaylists:    stats.TotalPlaylists,
		MosaicsGenerated:  stats.MosaicsGenerated,
		PreviewsGenerated: stats.PreviewsGenerated,
	}
}

func densityByName(name string) layout.Density {
	if d, ok := layout.Densities[name]; ok {
		return d
	}
	return layout.DensityM
}

func aspectByName(name string) layout.AspectRatio {
	switch name {
	case "4:3":
		return layout.Aspect4x3
	case "1:1":
		return layout.Aspect1x1
	case "21:9":
		return layout.Aspect21x9
	default:
		return layout.Aspect16x9
	}
}

func mosaicConfigFromDefaults(d startup.MosaicDefaults) mosaic.Config {
	cfg := mosaic.Defaults
	cfg.Width = d.Width
	cfg.Density = densityByName(d.Density)
	cfg.Format = d.Format
	cfg.CompressionQuality = d.CompressionQuality
	cfg.Aspect = aspectByName(d.AspectRatio)
	cfg.Spacing = d.Spacing
	cfg.IncludeMetadata = d.IncludeMetadata
	cfg.UseAccurateTimestamps = d.UseAccurateTimestamps
	cfg.Visual.BorderEnabled = d.BorderEnabled
	cfg.Visual.ShadowEnabled = d.ShadowEnabled
	cfg.Visual.ShadowOpacity = d.ShadowOpacity
	cfg.Visual.ShadowRadius = d.ShadowRadius
	return cfg
}

func previewConfigFromDefaults(d startup.PreviewDefaults) preview.Config {
	cfg := preview.Defaults
	cfg.PreviewDuration = d.DurationSeconds
	cfg.Density = densityByName(d.Density)
	cfg.MaxSpeedMultiplier = d.MaxSpeedMultiplier
	return cfg
}

// artifactSweeper periodically regenerates mosaics and previews for videos
// that don't have one yet. Unlike the batch coordinator's discovery runs,
// a sweep never touches the video's catalog row beyond the two artifact
// URL columns, so it uses the catalog directly rather than going through
// the coordinator's capability interfaces.
type artifactSweeper struct {
	cat        *catalog.Catalog
	mosaicEng  *mosaic.Engine
	previewEng *preview.Engine
	mosaicCfg  mosaic.Config
	previewCfg preview.Config
}

func (s *artifactSweeper) run(ctx context.Context) {
	videos, err := s.cat.FetchVideos(ctx, func(v *catalog.Video) bool {
		return v.MosaicURL == "" || v.PreviewURL == ""
	})
	if err != nil {
		logging.Warn("artifact sweep: failed to list candidate videos: %v", err)
		return
	}
	if len(videos) == 0 {
		logging.Debug("artifact sweep: nothing to do")
		return
	}
	logging.Info("artifact sweep: %d video(s) missing an artifact", len(videos))

	for _, v := range videos {
		if ctx.Err() != nil {
			return
		}
		changed := false

		if v.MosaicURL == "" {
			if path, err := s.mosaicEng.Generate(ctx, v, s.mosaicCfg, nil); err != nil {
				logging.Warn("artifact sweep: mosaic generation failed for %s: %v", v.URL, err)
			} else {
				v.MosaicURL = path
				changed = true
			}
		}

		if v.PreviewURL == "" {
			if path, err := s.previewEng.Generate(ctx, v, s.previewCfg, nil); err != nil {
				logging.Warn("artifact sweep: preview generation failed for %s: %v", v.URL, err)
			} else {
				v.PreviewURL = path
				changed = true
			}
		}

		if !changed {
			continue
		}
		if err := s.persist(ctx, v); err != nil {
			logging.Warn("artifact sweep: failed to persist %s: %v", v.URL, err)
		}
	}
}

func (s *artifactSweeper) persist(ctx context.Context, v *catalog.Video) error {
	tx, err := s.cat.BeginBatch(ctx)
	if err != nil {
		return err
	}
	runErr := s.cat.UpsertVideo(tx, v)
	return s.cat.EndBatch(tx, runErr)
}
