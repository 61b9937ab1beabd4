package models

// PathUsage is the on-disk size of one storage location.
type PathUsage struct {
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// Status summarizes the stored extractions and the state of the indexes.
type Status struct {
	Extractions      int64       `json:"extractions"`
	Failed           int64       `json:"failed"`
	KeywordDocuments uint64      `json:"keyword_documents"`
	VectorParagraphs int         `json:"vector_paragraphs"`
	DiskUsageBytes   int64       `json:"disk_usage_bytes"`
	DiskUsage        []PathUsage `json:"disk_usage,omitempty"`
	Grobid           string      `json:"grobid"` // up, down, or disabled
	StorageDriver    string      `json:"storage_driver"`
	ArchiveDriver    string      `json:"archive_driver"`
	EmbeddingModel   string      `json:"embedding_provider"`
	Dimensions       int         `json:"embedding_dimensions"`
	WatchDirectories []string    `json:"watch_directories,omitempty"`
}
