package model

import (
	"fmt"
	"runtime/debug"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

type FramerStats struct {
	Name      string `json:"name"`
	Camera    string `json:"camera"`
	FPS       int    `json:"fps"`
	Frames    int    `json:"frames"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type SchedulerStats struct {
	Name        string  `json:"name"`
	Disabled    bool    `json:"disabled"`
	Submitted   uint64  `json:"submitted"`
	Inferred    uint64  `json:"inferred"`
	Superseded  uint64  `json:"superseded"`
	Failed      uint64  `json:"failed"`
	Rejected    uint64  `json:"rejected"`
	Uptime      int64   `json:"uptime"`
	AvgProcTime float64 `json:"avgProcTime"`
	Timestamp   int64   `json:"timestamp"`
}

type RendererStats struct {
	Name       string `json:"name"`
	Passes     uint64 `json:"passes"`
	Primitives uint64 `json:"primitives"`
	Errors     uint64 `json:"errors"`
	Uptime     int64  `json:"uptime"`
	Timestamp  int64  `json:"timestamp"`
}

type PipelineStats struct {
	Session    string  `json:"session"`
	Camera     string  `json:"camera"`
	Detection  bool    `json:"detection"`
	Capture    bool    `json:"capture"`
	LastSeq    uint64  `json:"lastSeq"`
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	Uptime     int64   `json:"uptime"`
	Timestamp  int64   `json:"timestamp"`
}
