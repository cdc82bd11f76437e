package mode

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/pipeline"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
)

// run drives one pipeline agent and persists whatever it reports until the
// agent exits or the context is cancelled and the shutdown period passes.
func run(canxCtx context.Context, name string, svcs pipeline.ServicesFactory) error {
	errorStream := make(chan interface{}, 16)
	statsStream := make(chan interface{}, 16)

	agentResult := make(chan error, 1)
	go func() {
		agentResult <- pipeline.Agent(canxCtx, svcs, errorStream, statsStream)
	}()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				name + " context cancelled",
			)
			goto resume

		case err := <-agentResult:
			if err != nil {
				procError(svcs.DataSvc, model.GenError(name,
					err,
					map[string]interface{}{},
					"pipeline agent exited with error"))
			}
			lgr.Logger.Info(
				name + " pipeline agent exited",
			)
			drain(svcs, errorStream, statsStream)
			return err

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Wait in a non-blocking way for the shutdown period so the pipeline
	// can report errors and stats as it exits
resume:
	lgr.Logger.Info(
		name + " is waiting for the pipeline to exit",
	)

	period := time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second
	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				name+" shutdown waiting period expired. Exiting now",
				slog.Duration("period", period),
			)
			return nil

		case err := <-agentResult:
			lgr.Logger.Info(
				name + " pipeline agent exited",
			)
			drain(svcs, errorStream, statsStream)
			return err

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}

// drain persists whatever the agent reported right before it exited.
func drain(svcs pipeline.ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) {
	for {
		select {
		case s := <-statsStream:
			procStats(svcs.DataSvc, s)
		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		default:
			return
		}
	}
}
