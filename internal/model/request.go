package model

// CreateJobRequest is the body of POST /api/jobs. Every field is optional.
type CreateJobRequest struct {
	Topic           string `json:"topic" validate:"omitempty,max=500"`
	DurationSeconds *int   `json:"durationSeconds" validate:"omitempty,gt=0,lte=600"`
	BrandVoice      string `json:"brandVoice" validate:"omitempty,max=200"`
	AutoPublish     *bool  `json:"autoPublish"`
}

// Defaults applied when a create request leaves a field empty
const (
	DefaultTopic           = "New idea"
	DefaultDurationSeconds = 60
	DefaultBrandVoice      = "calm, confident, encouraging"
)

// Idea fills the defaults and returns the idea to run.
func (r CreateJobRequest) Idea() UserIdea {
	idea := UserIdea{
		Topic:           r.Topic,
		DurationSeconds: DefaultDurationSeconds,
		BrandVoice:      r.BrandVoice,
	}
	if idea.Topic == "" {
		idea.Topic = DefaultTopic
	}
	if r.DurationSeconds != nil {
		idea.DurationSeconds = *r.DurationSeconds
	}
	if idea.BrandVoice == "" {
		idea.BrandVoice = DefaultBrandVoice
	}
	return idea
}

// JobListResponse is the body of GET /api/jobs
type JobListResponse struct {
	Jobs []*JobRecord `json:"jobs"`
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	OK       bool            `json:"ok"`
	Services map[string]bool `json:"services"`
}
