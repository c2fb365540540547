package redis

const (
	// KeyCommandUsage is the hash of command name to invocation count
	KeyCommandUsage = "notionbot:usage:commands"
	// KeyDocUsage is the sorted set of document URL scored by times picked
	KeyDocUsage = "notionbot:usage:docs"
	// KeyDocTitles is the hash of document URL to its last seen title
	KeyDocTitles = "notionbot:usage:doc_titles"
)
