package shared

import "time"

// HTTP Client Configuration
const (
	DefaultProviderTimeout = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultListTimeout     = 10 * time.Second
)

// Cache Configuration
const (
	MessageCacheTTL     = 5 * time.Minute
	// Must outlive any in flight GetMessage
	MessageTombstoneTTL = time.Minute
)

// Chat Defaults
const (
	DefaultTemperature = 0.5
	PreviewLength      = 100
	NoUserMessage      = "No user message"
	Banner             = "LLM Message Dispatch Tool"
)

// DefaultModels is used when a chat request does not name any models
var DefaultModels = []string{
	"meta-llama/Llama-3.3-70B-Instruct-Turbo-Free",
	"deepseek-ai/DeepSeek-R1-Distill-Llama-70B-free",
}

// Provider Configuration
const (
	DefaultTogetherBaseURL = "https://api.together.xyz/v1"
)

// CORS Configuration
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}
