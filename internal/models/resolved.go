package models

import "time"

// ResolvedLesson is a lesson with every stored media path exchanged for a playable URL
type ResolvedLesson struct {
	Lesson     Lesson          `json:"lesson"`
	Slides     []ResolvedSlide `json:"slides"`
	ResolvedAt time.Time       `json:"resolvedAt"`
}

// ResolvedSlide mirrors Slide with URLs in place of object paths.
// Empty URLs mean the reference was absent or could not be signed.
type ResolvedSlide struct {
	ID    string         `json:"id"`
	Order int            `json:"order"`
	Kind  SlideKind      `json:"kind"`
	Video *ResolvedVideo `json:"video,omitempty"`
	Quiz  *ResolvedQuiz  `json:"quiz,omitempty"`
}

// ResolvedVideo is the playable form of a video slide
type ResolvedVideo struct {
	VideoURL string `json:"videoUrl,omitempty"`
}

// ResolvedAnswer is the playable form of a quiz answer
type ResolvedAnswer struct {
	Text      string `json:"text"`
	ImageURL  string `json:"imageUrl,omitempty"`
	IsCorrect bool   `json:"isCorrect"`
}

// ResolvedQuiz is the playable form of a quiz slide
type ResolvedQuiz struct {
	Question        string           `json:"question"`
	Heading         string           `json:"heading,omitempty"`
	AudioURL        string           `json:"audioUrl,omitempty"`
	Answers         []ResolvedAnswer `json:"answers"`
	CorrectQuote    string           `json:"correctQuote,omitempty"`
	CorrectAudioURL string           `json:"correctAudioUrl,omitempty"`
	WrongQuote      string           `json:"wrongQuote,omitempty"`
	WrongAudioURL   string           `json:"wrongAudioUrl,omitempty"`
}

// AssetURLs lists the media a renderer must fetch to show the slide
func (s *ResolvedSlide) AssetURLs() []string {
	var urls []string
	add := func(u string) {
		if u != "" {
			urls = append(urls, u)
		}
	}

	switch s.Kind {
	case SlideKindVideo:
		if s.Video != nil {
			add(s.Video.VideoURL)
		}
	case SlideKindQuiz:
		if s.Quiz != nil {
			add(s.Quiz.AudioURL)
			add(s.Quiz.CorrectAudioURL)
			add(s.Quiz.WrongAudioURL)
			for _, a := range s.Quiz.Answers {
				add(a.ImageURL)
			}
		}
	}
	return urls
}
