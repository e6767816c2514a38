package database

// Page is a crawled WordPress page or post.
type Page struct {
	ID            int64
	WPID          int64
	URL           string
	NormalizedURL string
	Title         string
	PageType      *string
	ContentText   *string
	ContentHTML   *string
	OutboundLinks []string
	WordCount     int
	Modified      *string
	CrawledAt     *string
}

// Suggestion is a stored link opportunity awaiting review or application.
type Suggestion struct {
	ID          int64
	RunID       string
	SourceURL   string
	SourceTitle *string
	TargetURL   string
	TargetType  string
	Anchor      string
	Context     *string
	Reasoning   *string
	Score       float64
	Status      string // "pending", "applied" or "rejected"
	CreatedAt   *string
}

// PermitRecord is a stored permit-link decision.
type PermitRecord struct {
	ID           int64
	RunID        string
	SourceURL    string
	SourceType   string
	Anchor       string
	TargetURL    string
	Decision     string
	GeoContext   *string
	FallbackUsed bool
	Confidence   float64
	CreatedAt    *string
}

// ArchitectureRow is one page's entry in a run's site-architecture map.
type ArchitectureRow struct {
	RunID         string
	URL           string
	PageType      string
	ClickDepth    int
	InboundLinks  int
	OutboundLinks int
	HubScore      *string
	Status        string
}

// RunReport holds metadata about an analysis run.
type RunReport struct {
	ID              int64
	RunID           string
	GeneratedAt     *string
	PageCount       int
	SuggestionCount int
	PermitCount     int
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalPages         int
	ClassifiedPages    int
	TotalSuggestions   int
	PendingSuggestions int
	AppliedSuggestions int
	Runs               int
}
