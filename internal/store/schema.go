package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column names.
const (
	tableGraphs   = "concept_graphs"
	tableNodes    = "concept_nodes"
	tableEdges    = "concept_edges"
	tableDecks    = "decks"
	tableCards    = "flashcards"
	tableExams    = "exams"
	tableAttempts = "exam_attempts"
	tableLLM      = "llm_request_events"

	colID        = "id"
	colCourseID  = "course_id"
	colCreatedAt = "created_at"
	colData      = "data"

	// colRowID is SQLite's implicit insertion order.
	colRowID = "rowid"
)

// textSize makes string columns unbounded text.
const textSize = 2147483647

var (
	graphsColumns = []*schema.Column{
		{Name: "course_id", Type: field.TypeString},
		{Name: "version", Type: field.TypeInt64},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	graphsTable = &schema.Table{
		Name:       tableGraphs,
		Columns:    graphsColumns,
		PrimaryKey: []*schema.Column{graphsColumns[0]},
	}

	nodesColumns = []*schema.Column{
		{Name: "course_id", Type: field.TypeString},
		{Name: "id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "difficulty", Type: field.TypeInt},
		{Name: "position", Type: field.TypeInt},
	}
	nodesTable = &schema.Table{
		Name:       tableNodes,
		Columns:    nodesColumns,
		PrimaryKey: []*schema.Column{nodesColumns[0], nodesColumns[1]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "concept_nodes_concept_graphs_nodes",
				Columns:    []*schema.Column{nodesColumns[0]},
				RefColumns: []*schema.Column{graphsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	edgesColumns = []*schema.Column{
		{Name: "course_id", Type: field.TypeString},
		{Name: "from_id", Type: field.TypeString},
		{Name: "to_id", Type: field.TypeString},
		{Name: "relationship", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
	}
	edgesTable = &schema.Table{
		Name:       tableEdges,
		Columns:    edgesColumns,
		PrimaryKey: []*schema.Column{edgesColumns[0], edgesColumns[1], edgesColumns[2]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "concept_edges_concept_graphs_edges",
				Columns:    []*schema.Column{edgesColumns[0]},
				RefColumns: []*schema.Column{graphsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	decksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "course_id", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "data", Type: field.TypeString, Size: textSize},
	}
	decksTable = &schema.Table{
		Name:       tableDecks,
		Columns:    decksColumns,
		PrimaryKey: []*schema.Column{decksColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "deck_course_id_created_at",
				Columns: []*schema.Column{decksColumns[1], decksColumns[2]},
			},
		},
	}

	cardsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "deck_id", Type: field.TypeString},
		{Name: "course_id", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "data", Type: field.TypeString, Size: textSize},
	}
	cardsTable = &schema.Table{
		Name:       tableCards,
		Columns:    cardsColumns,
		PrimaryKey: []*schema.Column{cardsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "flashcards_decks_cards",
				Columns:    []*schema.Column{cardsColumns[1]},
				RefColumns: []*schema.Column{decksColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "flashcard_deck_id",
				Columns: []*schema.Column{cardsColumns[1]},
			},
			{
				Name:    "flashcard_course_id",
				Columns: []*schema.Column{cardsColumns[2]},
			},
		},
	}

	examsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "course_id", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "data", Type: field.TypeString, Size: textSize},
	}
	examsTable = &schema.Table{
		Name:       tableExams,
		Columns:    examsColumns,
		PrimaryKey: []*schema.Column{examsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "exam_course_id_created_at",
				Columns: []*schema.Column{examsColumns[1], examsColumns[2]},
			},
		},
	}

	attemptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "exam_id", Type: field.TypeString},
		{Name: "course_id", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "completed", Type: field.TypeBool, Default: false},
		{Name: "data", Type: field.TypeString, Size: textSize},
	}
	attemptsTable = &schema.Table{
		Name:       tableAttempts,
		Columns:    attemptsColumns,
		PrimaryKey: []*schema.Column{attemptsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "exam_attempts_exams_attempts",
				Columns:    []*schema.Column{attemptsColumns[1]},
				RefColumns: []*schema.Column{examsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "examattempt_exam_id",
				Columns: []*schema.Column{attemptsColumns[1]},
			},
		},
	}

	llmRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: textSize, Default: ""},
	}
	llmRequestEventsTable = &schema.Table{
		Name:       tableLLM,
		Columns:    llmRequestEventsColumns,
		PrimaryKey: []*schema.Column{llmRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "llmrequestevent_purpose",
				Columns: []*schema.Column{llmRequestEventsColumns[4]},
			},
			{
				Name:    "llmrequestevent_model",
				Columns: []*schema.Column{llmRequestEventsColumns[3]},
			},
		},
	}

	tables = []*schema.Table{
		graphsTable,
		nodesTable,
		edgesTable,
		decksTable,
		cardsTable,
		examsTable,
		attemptsTable,
		llmRequestEventsTable,
	}
)

func init() {
	nodesTable.ForeignKeys[0].RefTable = graphsTable
	edgesTable.ForeignKeys[0].RefTable = graphsTable
	cardsTable.ForeignKeys[0].RefTable = decksTable
	attemptsTable.ForeignKeys[0].RefTable = examsTable
}
