package problemgen

// Kind selects what the generator should produce.
type Kind string

const (
	KindQuestion  Kind = "question"
	KindFlashcard Kind = "flashcard"
)

// Question types understood by the exam grader.
const (
	TypeMultipleChoice = "multiple_choice"
	TypeTrueFalse      = "true_false"
	TypeShortAnswer    = "short_answer"
	TypeEssay          = "essay"
)

// DefaultPoints is assigned to generated questions that omit points.
const DefaultPoints = 10

// DefaultTopic labels candidates that arrive without a topic.
const DefaultTopic = "General"

// Request is what the core sends to the generator.
type Request struct {
	CourseID   string
	Topics     []string
	Count      int
	Difficulty string
	Kind       Kind

	// Avoid holds normalized texts of prior items. The generator should
	// not repeat them; the protocol filters anything that slips through.
	Avoid []string
}

// Candidate is one generated item. For flashcards Text is the front and
// CorrectAnswer the back.
type Candidate struct {
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
	Topic         string   `json:"topic"`
	Difficulty    string   `json:"difficulty"`
	Points        int      `json:"points,omitempty"`

	// Malformed is set by the generator when the item could not be decoded.
	// The protocol counts such items as rejected.
	Malformed string `json:"-"`
}

// Batch is the filtered result of one protocol run.
type Batch struct {
	Candidates []Candidate
	Requested  int // how many the caller asked for
	Received   int // how many the generator returned
	Rejected   int // malformed entries dropped
	Duplicates int // entries dropped by the avoid-set or in-batch dedup
}

// Short reports whether fewer candidates survived than were requested.
func (b *Batch) Short() bool {
	return len(b.Candidates) < b.Requested
}
