package propagation

// aliasTable maps a canonical parameter name to the context keys that can
// satisfy it, in priority order. Stages name their outputs differently for
// the same semantic payload; the first alias holding a concrete value wins.
var aliasTable = map[string][]string{
	"primary_text": {"transcript", "article_text", "captions", "summary_text", "raw_text"},
	"text":         {"transcript", "article_text", "captions", "summary_text"},
	"transcript":   {"captions", "primary_text", "raw_text"},
	"summary":      {"summary_text", "abstract"},
	"claims":       {"extracted_claims", "claim_list"},
	"query":        {"search_query", "claim", "topic"},
	"url":          {"target_url", "source_url", "media_url"},
	"title":        {"video_title", "article_title", "resource_title"},
	"language":     {"detected_language", "source_language"},
}

// Aliases returns the context keys that may satisfy the given parameter.
func Aliases(param string) []string {
	return aliasTable[param]
}
