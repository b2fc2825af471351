package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-assistant/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ConnectorConfig holds settings shared by the source connectors.
type ConnectorConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the per-source result cap for one search.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// RequestsPerSecond is the per-source rate limit (default 1).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// PubMedAPIKey raises the PubMed eUtils rate limit when set.
	PubMedAPIKey string `json:"pubmed_api_key,omitempty" yaml:"pubmed_api_key,omitempty"`

	// CrossrefMailto is included in Crossref requests for the polite pool.
	CrossrefMailto string `json:"crossref_mailto,omitempty" yaml:"crossref_mailto,omitempty"`
}

// AggregatorConfig holds settings for the retrieval aggregator.
type AggregatorConfig struct {
	// Deadline is the shared wall-clock budget for one aggregate search
	// across all connectors (default 45s).
	Deadline time.Duration `json:"deadline" yaml:"deadline"`

	// SourcePriority breaks ranking ties; earlier sources win. Defaults
	// to arxiv, crossref, pubmed, doaj.
	SourcePriority []Source `json:"source_priority" yaml:"source_priority"`

	// CitationWeight, RecencyWeight, and LexicalWeight control the
	// composite ranking score. They are documented configuration, not
	// hard-coded assumptions.
	CitationWeight float64 `json:"citation_weight" yaml:"citation_weight"`
	RecencyWeight  float64 `json:"recency_weight" yaml:"recency_weight"`
	LexicalWeight  float64 `json:"lexical_weight" yaml:"lexical_weight"`

	// RecencyHalfLife is the age at which the recency component halves
	// (default 3 years).
	RecencyHalfLife time.Duration `json:"recency_half_life" yaml:"recency_half_life"`
}

// ModelConfig holds settings for stages that call the language model API.
type ModelConfig struct {
	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the model API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// EmbeddingConfig holds settings for the embeddings client.
type EmbeddingConfig struct {
	// BaseURL is an OpenAI-compatible embeddings endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates embedding requests.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the embedding model identifier.
	Model string `json:"model" yaml:"model"`

	// Timeout bounds one embedding request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// SummarizeConfig holds settings for the summarization engine.
type SummarizeConfig struct {
	ModelConfig `yaml:",inline"`

	// Parallelism caps concurrent per-paper summarizations within a job
	// to respect model-provider rate limits (default 3).
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

// SynthesizeConfig holds settings for the synthesis engine.
type SynthesizeConfig struct {
	ModelConfig `yaml:",inline"`

	// ClusterThreshold is the cosine similarity above which two summaries
	// join the same theme cluster (default 0.55).
	ClusterThreshold float64 `json:"cluster_threshold" yaml:"cluster_threshold"`

	// MaxThemes caps the number of reported themes (default 10).
	MaxThemes int `json:"max_themes" yaml:"max_themes"`
}

// DocumentIndexConfig holds settings for PDF ingestion and RAG answering.
type DocumentIndexConfig struct {
	ModelConfig `yaml:",inline"`

	// TopK is the number of passages retrieved per question (default 5).
	TopK int `json:"top_k" yaml:"top_k"`

	// RelevanceThreshold is the minimum cosine similarity a retrieved
	// passage must clear before the model is consulted (default 0.5).
	RelevanceThreshold float64 `json:"relevance_threshold" yaml:"relevance_threshold"`

	// MinPassageTokens drops shorter passages at ingestion, filtering
	// running headers and page furniture (default 8).
	MinPassageTokens int `json:"min_passage_tokens" yaml:"min_passage_tokens"`
}

// StoreConfig holds settings for the job/history and passage stores.
type StoreConfig struct {
	// Path is the SQLite database file. Empty selects the in-memory store.
	Path string `json:"path" yaml:"path"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// BindAddr is the listen address (default ":8080").
	BindAddr string `json:"bind_addr" yaml:"bind_addr"`

	// MaxUploadBytes bounds document uploads (default 32 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Connectors    ConnectorConfig     `json:"connectors" yaml:"connectors"`
	Aggregator    AggregatorConfig    `json:"aggregator" yaml:"aggregator"`
	Summarize     SummarizeConfig     `json:"summarize" yaml:"summarize"`
	Synthesize    SynthesizeConfig    `json:"synthesize" yaml:"synthesize"`
	Embedding     EmbeddingConfig     `json:"embedding" yaml:"embedding"`
	DocumentIndex DocumentIndexConfig `json:"document_index" yaml:"document_index"`
	Store         StoreConfig         `json:"store" yaml:"store"`
	Server        ServerConfig        `json:"server" yaml:"server"`

	// Workers bounds the job worker pool (default 2).
	Workers int `json:"workers" yaml:"workers"`
}

// Defaults fills unset fields with their documented defaults and returns
// the receiver for chaining.
func (c PipelineConfig) Defaults() PipelineConfig {
	if c.Connectors.Timeout == 0 {
		c.Connectors.Timeout = 20 * time.Second
	}
	if c.Connectors.UserAgent == "" {
		c.Connectors.UserAgent = "research-assistant/0.1"
	}
	if c.Connectors.MaxResults <= 0 {
		c.Connectors.MaxResults = 20
	}
	if c.Connectors.RequestsPerSecond <= 0 {
		c.Connectors.RequestsPerSecond = 1
	}
	if c.Aggregator.Deadline == 0 {
		c.Aggregator.Deadline = 45 * time.Second
	}
	if len(c.Aggregator.SourcePriority) == 0 {
		c.Aggregator.SourcePriority = append([]Source(nil), KnownSources...)
	}
	if c.Aggregator.CitationWeight == 0 {
		c.Aggregator.CitationWeight = 0.4
	}
	if c.Aggregator.RecencyWeight == 0 {
		c.Aggregator.RecencyWeight = 0.25
	}
	if c.Aggregator.LexicalWeight == 0 {
		c.Aggregator.LexicalWeight = 0.35
	}
	if c.Aggregator.RecencyHalfLife == 0 {
		c.Aggregator.RecencyHalfLife = 3 * 365 * 24 * time.Hour
	}
	if c.Summarize.Parallelism <= 0 {
		c.Summarize.Parallelism = 3
	}
	if c.Summarize.MaxRetries <= 0 {
		c.Summarize.MaxRetries = 3
	}
	if c.Synthesize.ClusterThreshold == 0 {
		c.Synthesize.ClusterThreshold = 0.55
	}
	if c.Synthesize.MaxThemes <= 0 {
		c.Synthesize.MaxThemes = 10
	}
	if c.Synthesize.MaxRetries <= 0 {
		c.Synthesize.MaxRetries = 3
	}
	if c.DocumentIndex.TopK <= 0 {
		c.DocumentIndex.TopK = 5
	}
	if c.DocumentIndex.RelevanceThreshold == 0 {
		c.DocumentIndex.RelevanceThreshold = 0.5
	}
	if c.DocumentIndex.MinPassageTokens <= 0 {
		c.DocumentIndex.MinPassageTokens = 8
	}
	if c.Embedding.Timeout == 0 {
		c.Embedding.Timeout = 30 * time.Second
	}
	if c.Server.BindAddr == "" {
		c.Server.BindAddr = ":8080"
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 32 << 20
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	return c
}
