package core

import "time"

type WindowConfig interface {
	GetHotWindowSize() int
}

type ArchiveConfig interface {
	GetArchiveBatchSize() int
	GetDigestMaxTokens() int
	GetCompactionTimeout() time.Duration
	GetCompactionConcurrency() int
}

type ReferenceConfig interface {
	GetTemporalTurns() int
	GetKeywordTurns() int
}

type DocumentConfig interface {
	GetCooldown() time.Duration
	GetSyncInterval() time.Duration
}

type ProviderConfig interface {
	GetProvider() string
	GetModel() string
	GetAPIKey() string
	GetBaseURL() string
}

type GenerationConfig interface {
	GetGenerationTimeout() time.Duration
}
