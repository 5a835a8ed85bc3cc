package entities

import "time"

// DocumentContent is the structured payload captured by a snapshot. Minutes
// use agenda/attendance/deliberations; resolutions use articles. Free-text
// fields are shared.
type DocumentContent struct {
	AgendaItems   []AgendaItem   `json:"agenda_items,omitempty"`
	Articles      []Article      `json:"articles,omitempty"`
	Attendance    []Attendee     `json:"attendance,omitempty"`
	Deliberations []Deliberation `json:"deliberations,omitempty"`
	Preamble      string         `json:"preamble,omitempty"`
	Closing       string         `json:"closing,omitempty"`
}

type AgendaItem struct {
	Order       int    `json:"order"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Article struct {
	Number  string `json:"number"`
	Heading string `json:"heading,omitempty"`
	Body    string `json:"body"`
}

type Attendee struct {
	MemberID      string `json:"member_id"`
	Name          string `json:"name"`
	Present       bool   `json:"present"`
	Justification string `json:"justification,omitempty"`
}

type Deliberation struct {
	Topic   string `json:"topic"`
	Summary string `json:"summary"`
}

// VersionSnapshot is an immutable, append-only capture of a document's
// content. VersionNumber is unique per document, strictly increasing from 1.
type VersionSnapshot struct {
	DocumentID    string
	VersionNumber int
	Content       DocumentContent
	AuthorID      string
	ChangeSummary string
	CreatedAt     time.Time
}

// VersionDiff flags which structural sub-lists changed between two snapshots.
// Comparison is structural: order-sensitive for lists, value equality for
// scalars. It is not a textual diff.
type VersionDiff struct {
	DocumentID           string
	FromVersion          int
	ToVersion            int
	AgendaChanged        bool
	ArticlesChanged      bool
	AttendanceChanged    bool
	DeliberationsChanged bool
	TextChanged          bool
}

func DiffContents(from VersionSnapshot, to VersionSnapshot) VersionDiff {
	return VersionDiff{
		DocumentID:           from.DocumentID,
		FromVersion:          from.VersionNumber,
		ToVersion:            to.VersionNumber,
		AgendaChanged:        !equalAgenda(from.Content.AgendaItems, to.Content.AgendaItems),
		ArticlesChanged:      !equalArticles(from.Content.Articles, to.Content.Articles),
		AttendanceChanged:    !equalAttendance(from.Content.Attendance, to.Content.Attendance),
		DeliberationsChanged: !equalDeliberations(from.Content.Deliberations, to.Content.Deliberations),
		TextChanged: from.Content.Preamble != to.Content.Preamble ||
			from.Content.Closing != to.Content.Closing,
	}
}

func equalAgenda(a []AgendaItem, b []AgendaItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalArticles(a []Article, b []Article) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalAttendance(a []Attendee, b []Attendee) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalDeliberations(a []Deliberation, b []Deliberation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
