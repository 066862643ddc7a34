package types

// Field bounds enforced on inbound entities.
const (
	MaxRepoNameLen = 200
	MaxNameLen     = 120
	MaxHandleLen   = 120
	MaxTitleLen    = 300
	MaxAreaLen     = 120
	MaxNoteLen     = 500
	MaxMessageLen  = 4000

	MinCapacityPoints = 1
	MaxCapacityPoints = 100
	MinConcurrent     = 1
	MaxConcurrent     = 20
	MinEstimate       = 1
	MaxEstimate       = 100
	MinPriority       = 0
	MaxPriority       = 1000
	MinTier           = 0
	MaxTier           = 3
	MinOpenPRs        = 0
	MaxOpenPRs        = 100
)

// Defaults applied when an inbound field is omitted.
const (
	DefaultCapacityPoints = 5
	DefaultConcurrent     = 2
	DefaultEstimate       = 1
	DefaultPriority       = 10
	DefaultTier           = 0
	DefaultMaxOpenPRs     = 3
)
