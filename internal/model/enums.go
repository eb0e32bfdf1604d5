package model

// Stage names
type StageName string

const (
	StageScript   StageName = "script"
	StageVideo    StageName = "video"
	StageAudio    StageName = "audio"
	StageCaptions StageName = "captions"
	StagePublish  StageName = "publish"
)

// StageNames lists every stage in execution order.
var StageNames = []StageName{
	StageScript, StageVideo, StageAudio, StageCaptions, StagePublish,
}

// UpstreamStages must all be ready before publish unlocks.
var UpstreamStages = []StageName{
	StageScript, StageVideo, StageAudio, StageCaptions,
}

// Valid reports whether n is one of the five pipeline stages.
func (n StageName) Valid() bool {
	switch n {
	case StageScript, StageVideo, StageAudio, StageCaptions, StagePublish:
		return true
	}
	return false
}

// Stage status
type StageStatus string

const (
	StageStatusIdle    StageStatus = "idle"
	StageStatusRunning StageStatus = "running"
	StageStatusReady   StageStatus = "ready"
	StageStatusLocked  StageStatus = "locked"
	StageStatusError   StageStatus = "error"
)

// Job status
type JobStatus string

const (
	JobStatusPending         JobStatus = "pending"
	JobStatusRunning         JobStatus = "running"
	JobStatusAwaitingPublish JobStatus = "awaiting_publish"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusError           JobStatus = "error"
)

// IsTerminal reports whether no further automatic progress happens for s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Video providers
type VideoProvider string

const (
	VideoProviderKie  VideoProvider = "kie"
	VideoProviderMock VideoProvider = "mock"
)

// Publish outcomes
type PublishStatus string

const (
	PublishStatusUploaded PublishStatus = "uploaded"
	PublishStatusSkipped  PublishStatus = "skipped"
)
