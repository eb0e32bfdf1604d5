package service

import "github.com/autovideo/api/internal/model"

// Stand-in outputs served when a vendor is not configured

func mockScript() *model.ScriptResponse {
	return &model.ScriptResponse{
		Script: model.ScriptBody{
			Sections: []model.ScriptSection{
				{ID: "hook", Text: "Hook line for the topic", DurationS: 8},
				{ID: "body", Text: "Body content describing the story", DurationS: 45},
				{ID: "cta", Text: "Call to action wrap-up", DurationS: 7},
			},
		},
		Scenes: []model.Scene{
			{
				ID:           "s1",
				Prompt:       "Close-up cinematic shot of latte art in a calm cafe, warm light",
				DurationS:    5,
				OnScreenText: "Brand is a feeling",
				Voiceover:    "Brand is the feeling customers remember.",
			},
		},
		Metadata: model.ScriptMetadata{
			Title:       "How to Brand a Small Cafe in 60 Seconds",
			Description: "A calm walkthrough for crafting a memorable cafe identity.",
			Tags:        []string{"branding", "cafe", "identity"},
		},
	}
}

func mockVideo() *model.VideoArtifact {
	return &model.VideoArtifact{
		Provider: model.VideoProviderMock,
		VideoURL: "https://example.com/mock-video.mp4",
		Prompt:   "Mock cinematic cafe shot sequence",
	}
}

func mockAudio() *model.AudioArtifact {
	return &model.AudioArtifact{
		VoiceoverURL: "https://example.com/mock-voiceover.mp3",
		CleanedURL:   "https://example.com/mock-cleaned.mp3",
		MixURL:       "https://example.com/mock-mix.mp4",
		Notes:        []string{"Mock audio artifact because ELEVENLABS_API_KEY is missing."},
	}
}

func mockCaptions() *model.CaptionArtifact {
	return &model.CaptionArtifact{
		Transcript: "Brand is the feeling customers remember. Craft every touchpoint with care.",
		SRT: "1\n00:00:00,000 --> 00:00:04,000\nBrand is the feeling customers remember.\n\n" +
			"2\n00:00:04,000 --> 00:00:08,000\nCraft every touchpoint with care.\n",
		Words: []model.CaptionWord{
			{Text: "Brand", Start: 0, End: 0.5},
			{Text: "is", Start: 0.5, End: 0.7},
		},
	}
}
