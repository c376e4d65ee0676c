package database

// StoredDocument is a briefing document imported into the database.
// Body is the raw JSON exactly as imported.
type StoredDocument struct {
	DateKey      string
	GeneratedAt  *string
	Body         string
	SectionCount int
	ItemCount    int
	ImportedAt   *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Documents int
	Items     int
	FirstDate string
	LastDate  string
	Settings  int
}
