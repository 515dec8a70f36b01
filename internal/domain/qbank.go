package domain

import "time"

// QuestionOption is one answer choice. The key is a stable short
// identifier ("a".."e"), order as stored.
type QuestionOption struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question is a practice question as served to clients. CorrectOption and
// Explanation are withheld from selection responses and only revealed by
// grading.
type Question struct {
	ID            string           `json:"id"`
	TopicSlug     string           `json:"topic_slug"`
	SpecialtySlug string           `json:"specialty_slug"`
	Stem          string           `json:"stem"`
	Options       []QuestionOption `json:"options"`
	CorrectOption string           `json:"-"`
	Explanation   string           `json:"-"`
}

// Topic is a browsable question grouping inside a specialty.
type Topic struct {
	ID            string `json:"id"`
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	SpecialtySlug string `json:"specialty_slug"`
	QuestionCount int    `json:"question_count"`
}

// Specialty is the top-level grouping for topics and questions.
type Specialty struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// TopicCard is a topic with the caller's progress attached.
type TopicCard struct {
	Topic
	Attempted int `json:"attempted"`
	Correct   int `json:"correct"`
}

// SpecialtyCard is a specialty with the caller's progress attached.
type SpecialtyCard struct {
	Specialty
	QuestionCount int `json:"question_count"`
	Attempted     int `json:"attempted"`
	Correct       int `json:"correct"`
}

// Summary is the per-user aggregate served at /qbank/summary.
type Summary struct {
	TotalQuestions int             `json:"total_questions"`
	Attempted      int             `json:"attempted"`
	Correct        int             `json:"correct"`
	Accuracy       float64         `json:"accuracy"`
	BySpecialty    []SpecialtyCard `json:"by_specialty"`
}

// Attempt is a recorded answer to one question.
type Attempt struct {
	QuestionID     string    `json:"question_id"`
	SelectedOption string    `json:"selected_option"`
	Correct        bool      `json:"correct"`
	CreatedAt      time.Time `json:"created_at"`
}

// AnswerResult is the grading outcome for a single answer.
type AnswerResult struct {
	QuestionID     string `json:"question_id"`
	Correct        bool   `json:"correct"`
	CorrectOption  string `json:"correct_option"`
	Explanation    string `json:"explanation,omitempty"`
	SelectedOption string `json:"selected_option"`
}

// AnswerSubmission is one answer inside a batch submit.
type AnswerSubmission struct {
	QuestionID     string `json:"question_id"`
	SelectedOption string `json:"selected_option"`
}

// SubmitResult is the outcome of a batch submit.
type SubmitResult struct {
	Results []AnswerResult `json:"results"`
	Total   int            `json:"total"`
	Correct int            `json:"correct"`
}

// PracticeSession summarizes the caller's recent attempts.
type PracticeSession struct {
	Attempts []Attempt `json:"attempts"`
	Total    int       `json:"total"`
	Correct  int       `json:"correct"`
}
