package domain

// TextbookSection is one ordered content block of a topic page.
type TextbookSection struct {
	ID       string `json:"id"`
	TopicID  string `json:"topic_id"`
	Heading  string `json:"heading"`
	Body     string `json:"body"`
	Position int    `json:"position"`
}

// TopicContent is a topic with its assembled sections.
type TopicContent struct {
	Topic    Topic             `json:"topic"`
	Sections []TextbookSection `json:"sections"`
}

// SpecialtyOutline is a specialty with its topics, used for the outline
// tree and the specialty page. Synthesized specialties carry an empty
// topic list and no ID.
type SpecialtyOutline struct {
	Specialty
	Topics []Topic `json:"topics"`
}

// ReferenceRangeItem is one analyte row.
type ReferenceRangeItem struct {
	ID      string  `json:"id"`
	GroupID string  `json:"group_id"`
	Analyte string  `json:"analyte"`
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
	Unit    string  `json:"unit"`
	Note    string  `json:"note,omitempty"`
}

// ReferenceRangeGroup buckets items (e.g. "Serum chemistry").
type ReferenceRangeGroup struct {
	ID    string               `json:"id"`
	Name  string               `json:"name"`
	Items []ReferenceRangeItem `json:"items"`
}
