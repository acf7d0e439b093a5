package httpapi

// Config defines HTTP API settings.
type Config struct {
	Addr           string
	BasePath       string
	AllowedOrigins []string
	// HistorySize bounds the stream events kept for Last-Event-ID replay.
	HistorySize int
}
