package api

// ImageFiles is the classification of one image's member files
type ImageFiles struct {
	Source string              `json:"source"`
	Files  map[string][]string `json:"files"`
}

// Records is a page of package index rows
type Records struct {
	Count   int                 `json:"count"`
	Records []map[string]string `json:"records"`
}

type Error struct {
	Error string `json:"error"`
}
