package model

import "time"

// UserIdea is the creative brief a job is built from
type UserIdea struct {
	Topic           string `json:"topic"`
	DurationSeconds int    `json:"durationSeconds"`
	BrandVoice      string `json:"brandVoice"`
}

// JobOptions are fixed when the job is created
type JobOptions struct {
	AutoPublish bool `json:"autoPublish"`
}

// Artifacts holds the output of each stage. A key is set only after its stage is ready.
type Artifacts struct {
	Script   *ScriptResponse  `json:"script,omitempty"`
	Video    *VideoArtifact   `json:"video,omitempty"`
	Audio    *AudioArtifact   `json:"audio,omitempty"`
	Captions *CaptionArtifact `json:"captions,omitempty"`
	Publish  *PublishArtifact `json:"publish,omitempty"`
}

// JobRecord is one pipeline execution
type JobRecord struct {
	ID          string     `json:"id"`
	Idea        UserIdea   `json:"idea"`
	Status      JobStatus  `json:"status"`
	Stages      StageMap   `json:"stages"`
	Artifacts   Artifacts  `json:"artifacts"`
	Options     JobOptions `json:"options"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewJobRecord builds a pending record with a locked publish stage.
func NewJobRecord(id string, idea UserIdea, opts JobOptions, now time.Time) *JobRecord {
	job := &JobRecord{
		ID:        id,
		Idea:      idea,
		Stages:    NewStageMap(),
		Options:   opts,
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.Status = DeriveStatus(job)
	return job
}

// Clone returns a deep copy of the record.
func (j *JobRecord) Clone() *JobRecord {
	if j == nil {
		return nil
	}
	c := *j
	c.StartedAt = cloneTime(j.StartedAt)
	c.CompletedAt = cloneTime(j.CompletedAt)
	c.Artifacts = j.Artifacts.clone()
	return &c
}

// Refresh recomputes Status from the stage map and stamps CompletedAt once the job
// reaches a terminal status.
func (j *JobRecord) Refresh(now time.Time) {
	j.Status = DeriveStatus(j)
	if j.Status.IsTerminal() {
		if j.CompletedAt == nil {
			t := now
			j.CompletedAt = &t
		}
	} else {
		j.CompletedAt = nil
	}
}

// DeriveStatus computes the job status from its stages. It is the only place job
// status is decided.
func DeriveStatus(j *JobRecord) JobStatus {
	st := &j.Stages
	anyActive := false
	allReady := true
	for _, n := range StageNames {
		s := st.Get(n)
		switch s.Status() {
		case StageStatusError:
			return JobStatusError
		case StageStatusRunning:
			anyActive = true
		case StageStatusReady:
			anyActive = true
		}
		if !s.Ready() {
			allReady = false
		}
	}
	if allReady {
		return JobStatusCompleted
	}
	if st.UpstreamReady() && st.Publish.Status() == StageStatusIdle {
		return JobStatusAwaitingPublish
	}
	if anyActive || j.StartedAt != nil {
		return JobStatusRunning
	}
	return JobStatusPending
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (a Artifacts) clone() Artifacts {
	var c Artifacts
	if a.Script != nil {
		c.Script = a.Script.Clone()
	}
	if a.Video != nil {
		v := *a.Video
		c.Video = &v
	}
	if a.Audio != nil {
		au := *a.Audio
		au.Notes = append([]string(nil), a.Audio.Notes...)
		c.Audio = &au
	}
	if a.Captions != nil {
		cp := *a.Captions
		cp.Words = append([]CaptionWord(nil), a.Captions.Words...)
		c.Captions = &cp
	}
	if a.Publish != nil {
		p := *a.Publish
		c.Publish = &p
	}
	return c
}
