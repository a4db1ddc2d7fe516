package config

import "time"

// Server defaults
const (
	DefaultListen       = "127.0.0.1:8081"
	DefaultLogDir       = "log"
	DefaultPingHost     = "8.8.8.8"
	DefaultInterval     = 60 * time.Second
	DefaultProbeTimeout = 1 * time.Second
	DefaultLogLevel     = "info"
	DefaultMaxStorageMB = 64
)

// HTTP server timeouts
const (
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ShutdownTimeout    = 10 * time.Second
	RequestTimeout     = 15 * time.Second
)

// Query defaults and limits
const (
	PingsDefaultCount   = 60
	PingsMaxCount       = 60 * 24 * 7
	HistoryDefaultCount = 24
	HistoryMaxCount     = 24 * 7 * 8

	// SamplesPerHour bounds how many samples one history bucket is assumed
	// to hold; history queries over-read count*SamplesPerHour samples.
	SamplesPerHour = 65
)

// Export defaults and limits
const (
	DefaultExportWindow = 24 * time.Hour
	MaxExportWindow     = 8 * 7 * 24 * time.Hour
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSBroadcastBuffer = 64
	WSChannelBuffer   = 10
	WSWriteDeadline   = 10 * time.Second
	WSReadDeadline    = 60 * time.Second
	WSPingInterval    = 30 * time.Second
)

// Monitor settings
const (
	StorageCacheDuration = 10 * time.Second
	WriterUnhealthyAfter = 3
)
