package main

import (
	"testing"

	"taleweaver/assert"
	"taleweaver/client/gemini"
)

func TestParseConfig_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	config, err := parseConfig("")

	assert.NoError(t, err, "parseConfig")
	assert.Equal(t, "info", config.LogLevel, "default log level")
	assert.Equal(t, "env-key", config.APIKey, "api key from environment")
	assert.True(t, config.DataDir != "", "default data dir")
}

func TestParseConfig_Fields(t *testing.T) {
	config, err := parseConfig(`{"api_key":"k","model":"m","temperature":0.2,"top_k":5,"retries":1,"data_dir":"/tmp/tw","log_level":"debug"}`)

	assert.NoError(t, err, "parseConfig")
	assert.Equal(t, "k", config.APIKey, "api key")
	assert.Equal(t, "m", config.Model, "model")
	assert.Equal(t, 0.2, config.Temperature, "temperature")
	assert.Equal(t, 5, config.TopK, "top k")
	assert.Equal(t, 1, config.Retries, "retries")
	assert.Equal(t, "/tmp/tw", config.DataDir, "data dir")
	assert.Equal(t, "debug", config.LogLevel, "log level")
}

func TestParseConfig_Invalid(t *testing.T) {
	_, err := parseConfig("{not json")

	assert.Error(t, err, "invalid json")
}

func TestNewGenerator_Overrides(t *testing.T) {
	client := newGenerator(Config{APIKey: "k", TopK: 7, MaxOutputTokens: 256})

	assert.Equal(t, gemini.DefaultModel, client.Model, "default model")
	assert.Equal(t, 7, client.Config.TopK, "top k override")
	assert.Equal(t, 256, client.Config.MaxOutputTokens, "max output tokens override")
	assert.Equal(t, 0.8, client.Config.Temperature, "default temperature kept")
}
