package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/pipeline"
	"github.com/khaledhikmat/vs-overlay/service/data"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
)

type Processor func(canxCtx context.Context, svcs pipeline.ServicesFactory) error

func procStats(datasvc data.IService, stats interface{}) {
	var err error
	switch stats := stats.(type) {
	case model.FramerStats:
		err = datasvc.NewFramerStats(stats)
	case model.SchedulerStats:
		err = datasvc.NewSchedulerStats(stats)
	case model.RendererStats:
		err = datasvc.NewRendererStats(stats)
	case model.PipelineStats:
		lgr.Logger.Debug(
			"pipeline stats",
			slog.Uint64("lastSeq", stats.LastSeq),
			slog.Uint64("rss", stats.RSSBytes),
			slog.Float64("cpu", stats.CPUPercent),
		)
		err = datasvc.NewPipelineStats(stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
		return
	}

	if err != nil {
		lgr.Logger.Error(
			"failed to store stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
