package internal

import "time"

type Config struct {
	Host                 string        `env:"HOST"`
	Port                 int           `env:"PORT,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	SaveTimeout          time.Duration `env:"SAVE_TIMEOUT,required=true"`
	AutosaveInterval     time.Duration `env:"AUTOSAVE_INTERVAL,required=true"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	AnthropicAPIKey      string        `env:"ANTHROPIC_API_KEY"`
	AssistModel          string        `env:"ASSIST_MODEL,default=claude-3-5-haiku-latest"`
}
