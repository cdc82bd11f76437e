package data

import "github.com/khaledhikmat/vs-overlay/model"

type IService interface {
	NewError(err interface{}) error
	NewFramerStats(stats model.FramerStats) error
	NewSchedulerStats(stats model.SchedulerStats) error
	NewRendererStats(stats model.RendererStats) error
	NewPipelineStats(stats model.PipelineStats) error
}
