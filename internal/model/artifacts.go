package model

// ScriptSection is one spoken block of the script
type ScriptSection struct {
	ID        string `json:"id" validate:"required"`
	Text      string `json:"text" validate:"required"`
	DurationS int    `json:"duration_s" validate:"gte=0"`
}

// Scene is one shot of the video
type Scene struct {
	ID           string `json:"id" validate:"required"`
	Prompt       string `json:"prompt" validate:"required"`
	DurationS    int    `json:"duration_s" validate:"gte=0"`
	OnScreenText string `json:"on_screen_text"`
	Voiceover    string `json:"voiceover"`
}

// ScriptMetadata is what gets attached to the published video
type ScriptMetadata struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ScriptBody groups the script sections
type ScriptBody struct {
	Sections []ScriptSection `json:"sections" validate:"required,min=1,dive"`
}

// ScriptResponse is the output of the script stage
type ScriptResponse struct {
	Script   ScriptBody     `json:"script" validate:"required"`
	Scenes   []Scene        `json:"scenes" validate:"required,min=1,dive"`
	Metadata ScriptMetadata `json:"metadata" validate:"required"`
}

// Clone deep-copies the script.
func (s *ScriptResponse) Clone() *ScriptResponse {
	c := *s
	c.Script.Sections = append([]ScriptSection(nil), s.Script.Sections...)
	c.Scenes = append([]Scene(nil), s.Scenes...)
	c.Metadata.Tags = append([]string(nil), s.Metadata.Tags...)
	return &c
}

// VideoArtifact is the output of the video stage
type VideoArtifact struct {
	Provider VideoProvider `json:"provider"`
	TaskID   string        `json:"taskId,omitempty"`
	VideoURL string        `json:"videoUrl"`
	Prompt   string        `json:"prompt"`
}

// AudioArtifact is the output of the audio stage
type AudioArtifact struct {
	VoiceoverURL string   `json:"voiceoverUrl"`
	CleanedURL   string   `json:"cleanedUrl,omitempty"`
	MixURL       string   `json:"mixUrl,omitempty"`
	Notes        []string `json:"notes,omitempty"`
}

// CaptionWord is one timed word of the transcript
type CaptionWord struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// CaptionArtifact is the output of the captions stage
type CaptionArtifact struct {
	Transcript string        `json:"transcript"`
	SRT        string        `json:"srt"`
	Words      []CaptionWord `json:"words,omitempty"`
}

// PublishArtifact is the output of the publish stage
type PublishArtifact struct {
	Status  PublishStatus `json:"status"`
	VideoID string        `json:"videoId,omitempty"`
	Reason  string        `json:"reason,omitempty"`
}
