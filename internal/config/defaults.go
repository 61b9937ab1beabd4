package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 300
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 64
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kubun/data/db/extractions.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/kubun/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/kubun/data/indices/vectors.bin"
	}
	if cfg.Archive.Driver == "" {
		cfg.Archive.Driver = "local"
	}
	if cfg.Archive.Directory == "" {
		cfg.Archive.Directory = "/usr/local/var/kubun/data/outputs"
	}
	if cfg.Archive.S3Prefix == "" {
		cfg.Archive.S3Prefix = "kubun/"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kubun/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Pooling == "" {
		cfg.Embedding.Pooling = "mean"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 128
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.GeminiModel == "" {
		cfg.Embedding.GeminiModel = "text-embedding-004"
	}
	if cfg.Grobid.URL == "" {
		cfg.Grobid.URL = "http://localhost:8070"
	}
	if cfg.Grobid.TimeoutSeconds == 0 {
		cfg.Grobid.TimeoutSeconds = 30
	}
	if cfg.Grobid.MaxRetries == 0 {
		cfg.Grobid.MaxRetries = 5
	}
	if cfg.Grobid.Concurrency == 0 {
		cfg.Grobid.Concurrency = 1
	}
	if cfg.Extract.TimeoutSeconds == 0 {
		cfg.Extract.TimeoutSeconds = 120
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 100
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.SemanticWeight == 0 {
		cfg.Search.KeywordWeight = 0.5
		cfg.Search.SemanticWeight = 0.5
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".xml", ".tei", ".json", ".md", ".html", ".htm", ".docx", ".odt", ".rtf", ".txt"}
	}
	if cfg.Watch.Workers == 0 {
		cfg.Watch.Workers = 1
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 400
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
