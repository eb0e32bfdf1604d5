package model

import (
	"encoding/json"
	"fmt"
)

// StageState describes exactly one of the five stage shapes. The zero value is an
// idle stage. Build values with Idle, Running, Ready, Locked or Failed.
type StageState struct {
	status StageStatus
	text   string
}

// Idle is a stage that has not started; reason is optional.
func Idle(reason string) StageState {
	return StageState{status: StageStatusIdle, text: reason}
}

// Running is a stage in progress; detail is optional.
func Running(detail string) StageState {
	return StageState{status: StageStatusRunning, text: detail}
}

// Ready is a stage that completed successfully; outputRef is optional.
func Ready(outputRef string) StageState {
	return StageState{status: StageStatusReady, text: outputRef}
}

// Locked is a stage blocked on an upstream condition. An empty reason is replaced
// with a generic one so a locked stage always explains itself.
func Locked(reason string) StageState {
	if reason == "" {
		reason = "locked"
	}
	return StageState{status: StageStatusLocked, text: reason}
}

// Failed is a stage that ended in error.
func Failed(message string) StageState {
	if message == "" {
		message = "Unknown error"
	}
	return StageState{status: StageStatusError, text: message}
}

// Status returns the stage status, treating the zero value as idle.
func (s StageState) Status() StageStatus {
	if s.status == "" {
		return StageStatusIdle
	}
	return s.status
}

// Ready is true if and only if the stage status is ready.
func (s StageState) Ready() bool {
	return s.status == StageStatusReady
}

// Reason is set for idle and locked stages.
func (s StageState) Reason() string {
	if st := s.Status(); st == StageStatusIdle || st == StageStatusLocked {
		return s.text
	}
	return ""
}

// Detail is set for running stages.
func (s StageState) Detail() string {
	if s.status == StageStatusRunning {
		return s.text
	}
	return ""
}

// OutputRef is set for ready stages.
func (s StageState) OutputRef() string {
	if s.status == StageStatusReady {
		return s.text
	}
	return ""
}

// Error is the failure message of an errored stage.
func (s StageState) Error() string {
	if s.status == StageStatusError {
		return s.text
	}
	return ""
}

type stageStateJSON struct {
	Status    StageStatus `json:"status"`
	Ready     bool        `json:"ready"`
	Reason    string      `json:"reason,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	OutputRef string      `json:"outputRef,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// MarshalJSON renders the tagged shape, e.g. {"status":"idle","ready":false,"reason":"..."}.
func (s StageState) MarshalJSON() ([]byte, error) {
	out := stageStateJSON{Status: s.Status(), Ready: s.Ready()}
	switch out.Status {
	case StageStatusIdle, StageStatusLocked:
		out.Reason = s.text
	case StageStatusRunning:
		out.Detail = s.text
	case StageStatusReady:
		out.OutputRef = s.text
	case StageStatusError:
		out.Error = s.text
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts only the five known shapes.
func (s *StageState) UnmarshalJSON(data []byte) error {
	var in stageStateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Status {
	case StageStatusIdle, "":
		*s = Idle(in.Reason)
	case StageStatusRunning:
		*s = Running(in.Detail)
	case StageStatusReady:
		*s = Ready(in.OutputRef)
	case StageStatusLocked:
		if in.Reason == "" {
			return fmt.Errorf("locked stage requires a reason")
		}
		*s = Locked(in.Reason)
	case StageStatusError:
		*s = Failed(in.Error)
	default:
		return fmt.Errorf("unknown stage status %q", in.Status)
	}
	return nil
}

// StageMap holds the state of all five stages. The set of keys is fixed.
type StageMap struct {
	Script   StageState `json:"script"`
	Video    StageState `json:"video"`
	Audio    StageState `json:"audio"`
	Captions StageState `json:"captions"`
	Publish  StageState `json:"publish"`
}

// NewStageMap returns the initial map: four idle stages and a locked publish stage.
func NewStageMap() StageMap {
	return StageMap{
		Script:   Idle(""),
		Video:    Idle(""),
		Audio:    Idle(""),
		Captions: Idle(""),
		Publish:  Locked("waiting for upstream readiness"),
	}
}

// Get returns the state of stage n.
func (m *StageMap) Get(n StageName) StageState {
	if p := m.slot(n); p != nil {
		return *p
	}
	return StageState{}
}

// Set replaces the state of stage n. Unknown names are ignored.
func (m *StageMap) Set(n StageName, s StageState) {
	if p := m.slot(n); p != nil {
		*p = s
	}
}

func (m *StageMap) slot(n StageName) *StageState {
	switch n {
	case StageScript:
		return &m.Script
	case StageVideo:
		return &m.Video
	case StageAudio:
		return &m.Audio
	case StageCaptions:
		return &m.Captions
	case StagePublish:
		return &m.Publish
	}
	return nil
}

// UpstreamReady reports whether script, video, audio and captions are all ready.
func (m *StageMap) UpstreamReady() bool {
	for _, n := range UpstreamStages {
		if !m.Get(n).Ready() {
			return false
		}
	}
	return true
}
