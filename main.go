package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"taleweaver/logger"
)

type Config struct {
	NsID                   int     `json:"ns_id"`
	APIKey                 string  `json:"api_key"`
	Model                  string  `json:"model"`
	BaseURL                string  `json:"base_url"`
	Temperature            float64 `json:"temperature"`
	TopK                   int     `json:"top_k"`
	TopP                   float64 `json:"top_p"`
	MaxOutputTokens        int     `json:"max_output_tokens"`
	Retries                int     `json:"retries"`
	BackoffBase            int     `json:"backoff_base"`       // in milliseconds
	MaxContextTokens       int     `json:"max_context_tokens"` // max tokens of history sent with continue prompts
	DataDir                string  `json:"data_dir"`
	MetricsURL             string  `json:"metrics_url"`
	IdleTimeout            int     `json:"idle_timeout"` // in milliseconds, default 30s
	DebugImmediateShutdown bool    `json:"debug_immediate_shutdown"`
	LogLevel               string  `json:"log_level"` // trace, debug, info, warn, error
}

type ServerMode string

const (
	ModeDaemon ServerMode = "daemon"
	ModeClient ServerMode = "client"
)

func execDir() string {
	execPath, err := os.Executable()
	if err != nil {
		logger.Fatal("error getting executable path: %v", err)
	}
	return filepath.Dir(execPath)
}

// Setup logger to log to a file in the same directory as the executable
// Caller must defer logger.Close()
func setupLogger(logLevel string) *logger.Logger {
	l, err := logger.Open(filepath.Join(execDir(), "taleweaver.log"), logger.ParseLevel(logLevel))
	if err != nil {
		logger.Fatal("error opening log: %v", err)
	}
	log.SetOutput(l)
	return l
}

func getSocketPath() string {
	return filepath.Join(execDir(), "taleweaver.sock")
}

func getPidPath() string {
	return filepath.Join(execDir(), "taleweaver.pid")
}

func parseConfig(raw string) (Config, error) {
	var config Config
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &config); err != nil {
			return Config{}, err
		}
	}

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.DataDir == "" {
		config.DataDir = filepath.Join(execDir(), "data")
	}
	if config.APIKey == "" {
		config.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	return config, nil
}

func loadConfig() Config {
	config, err := parseConfig(os.Getenv("TALEWEAVER_CONFIG"))
	if err != nil {
		logger.Fatal("invalid config: %v", err)
	}
	return config
}

func runDaemon() {
	config := loadConfig()

	l := setupLogger(config.LogLevel)
	defer l.Close()

	redacted := config
	if redacted.APIKey != "" {
		redacted.APIKey = "***"
	}
	logger.Info("config: %+v", redacted)

	daemon, err := NewDaemon(config)
	if err != nil {
		logger.Error("error creating daemon: %v", err)
		return
	}

	if err := daemon.Start(); err != nil {
		logger.Error("error starting daemon: %v", err)
	}
}

func runClient() {
	client := NewClient()

	if err := client.EnsureDaemonRunning(); err != nil {
		logger.Fatal("error ensuring daemon is running: %v", err)
	}

	if err := client.Connect(); err != nil {
		logger.Fatal("error connecting to daemon: %v", err)
	}
}

func main() {
	var mode ServerMode = ModeClient

	if len(os.Args) > 1 && os.Args[1] == "--daemon" {
		mode = ModeDaemon
	}

	switch mode {
	case ModeDaemon:
		runDaemon()
	case ModeClient:
		runClient()
	}
}
