package repository

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const textSize = 2147483647

var (
	// CategoriesColumns holds the columns for the "categories" table.
	CategoriesColumns = []*schema.Column{
		{Name: "wordset_id", Type: field.TypeInt64},
		{Name: "id", Type: field.TypeInt64},
		{Name: "slug", Type: field.TypeString, Default: ""},
		{Name: "name", Type: field.TypeString, Default: ""},
		{Name: "translation", Type: field.TypeString, Default: ""},
		{Name: "aspect_bucket", Type: field.TypeString, Default: ""},
		{Name: "prompt_type", Type: field.TypeString, Default: ""},
		{Name: "option_type", Type: field.TypeString, Default: ""},
		{Name: "learning_supported", Type: field.TypeBool, Default: false},
		{Name: "gender_supported", Type: field.TypeBool, Default: false},
		{Name: "hidden", Type: field.TypeBool, Default: false},
	}
	// CategoriesTable holds the schema information for the "categories" table.
	CategoriesTable = &schema.Table{
		Name:       "categories",
		Columns:    CategoriesColumns,
		PrimaryKey: []*schema.Column{CategoriesColumns[0], CategoriesColumns[1]},
	}

	// WordsColumns holds the columns for the "words" table.
	WordsColumns = []*schema.Column{
		{Name: "wordset_id", Type: field.TypeInt64},
		{Name: "id", Type: field.TypeInt64},
		{Name: "title", Type: field.TypeString, Default: ""},
		{Name: "translation", Type: field.TypeString, Default: ""},
		{Name: "image_url", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "audio_files", Type: field.TypeString, Size: textSize, Default: "[]"},
		{Name: "difficulty_score", Type: field.TypeFloat64, Default: 0},
		{Name: "total_coverage", Type: field.TypeInt, Default: 0},
		{Name: "incorrect_count", Type: field.TypeInt, Default: 0},
		{Name: "last_seen_at", Type: field.TypeTime, Nullable: true},
	}
	// WordsTable holds the schema information for the "words" table.
	WordsTable = &schema.Table{
		Name:       "words",
		Columns:    WordsColumns,
		PrimaryKey: []*schema.Column{WordsColumns[0], WordsColumns[1]},
	}

	// WordCategoriesColumns holds the columns for the "word_categories" table.
	WordCategoriesColumns = []*schema.Column{
		{Name: "wordset_id", Type: field.TypeInt64},
		{Name: "category_id", Type: field.TypeInt64},
		{Name: "word_id", Type: field.TypeInt64},
	}
	// WordCategoriesTable holds the schema information for the "word_categories" table.
	WordCategoriesTable = &schema.Table{
		Name:       "word_categories",
		Columns:    WordCategoriesColumns,
		PrimaryKey: []*schema.Column{WordCategoriesColumns[0], WordCategoriesColumns[1], WordCategoriesColumns[2]},
		Indexes: []*schema.Index{
			{
				Name:    "wordcategory_wordset_id_word_id",
				Unique:  false,
				Columns: []*schema.Column{WordCategoriesColumns[0], WordCategoriesColumns[2]},
			},
		},
	}

	// LearnerProfilesColumns holds the columns for the "learner_profiles" table.
	LearnerProfilesColumns = []*schema.Column{
		{Name: "wordset_id", Type: field.TypeInt64},
		{Name: "state", Type: field.TypeString, Size: textSize, Nullable: true},
		{Name: "goals", Type: field.TypeString, Size: textSize, Nullable: true},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// LearnerProfilesTable holds the schema information for the "learner_profiles" table.
	LearnerProfilesTable = &schema.Table{
		Name:       "learner_profiles",
		Columns:    LearnerProfilesColumns,
		PrimaryKey: []*schema.Column{LearnerProfilesColumns[0]},
	}

	// DismissedActivitiesColumns holds the columns for the "dismissed_activities" table.
	DismissedActivitiesColumns = []*schema.Column{
		{Name: "wordset_id", Type: field.TypeInt64},
		{Name: "queue_id", Type: field.TypeString},
		{Name: "dismissed_at", Type: field.TypeTime},
	}
	// DismissedActivitiesTable holds the schema information for the "dismissed_activities" table.
	DismissedActivitiesTable = &schema.Table{
		Name:       "dismissed_activities",
		Columns:    DismissedActivitiesColumns,
		PrimaryKey: []*schema.Column{DismissedActivitiesColumns[0], DismissedActivitiesColumns[1]},
	}

	// WordOutcomesColumns holds the columns for the "word_outcomes" table.
	WordOutcomesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "wordset_id", Type: field.TypeInt64},
		{Name: "word_id", Type: field.TypeInt64},
		{Name: "mode", Type: field.TypeString, Default: ""},
		{Name: "correct", Type: field.TypeBool, Default: false},
		{Name: "answered_at", Type: field.TypeTime},
	}
	// WordOutcomesTable holds the schema information for the "word_outcomes" table.
	WordOutcomesTable = &schema.Table{
		Name:       "word_outcomes",
		Columns:    WordOutcomesColumns,
		PrimaryKey: []*schema.Column{WordOutcomesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "wordoutcome_wordset_id_answered_at",
				Unique:  false,
				Columns: []*schema.Column{WordOutcomesColumns[1], WordOutcomesColumns[5]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		CategoriesTable,
		WordsTable,
		WordCategoriesTable,
		LearnerProfilesTable,
		DismissedActivitiesTable,
		WordOutcomesTable,
	}
)
