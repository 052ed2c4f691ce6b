package main

import (
	"flag"
	"log"
	"os"
)

// ServerConfig holds the server's startup configuration, resolved from CLI
// flags falling back to environment variables falling back to defaults.
type ServerConfig struct {
	Addr     string
	LogLevel string
}

type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*ServerConfig, string)
}

// loadServerConfig loads server configuration from CLI flags and environment
// variables. To add a new option, add a resolver here.
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{}

	resolvers := []configResolver{
		{
			flagName:    "addr",
			envVarName:  "JC_ADDR",
			defaultVal:  ":8080",
			description: "HTTP listen address (e.g. :8080, 0.0.0.0:8080)",
			setter:      func(c *ServerConfig, v string) { c.Addr = v },
		},
		{
			flagName:    "log-level",
			envVarName:  "JC_LOG_LEVEL",
			defaultVal:  "info",
			description: "log level: debug, info, warn, error",
			setter:      func(c *ServerConfig, v string) { c.LogLevel = v },
		},
	}

	flagVars := make(map[string]*string)
	for _, resolver := range resolvers {
		flagVars[resolver.flagName] = flag.String(resolver.flagName, "", resolver.description)
	}
	flag.Parse()

	for _, resolver := range resolvers {
		var value string
		if *flagVars[resolver.flagName] != "" {
			value = *flagVars[resolver.flagName]
		} else if envValue := os.Getenv(resolver.envVarName); envValue != "" {
			value = envValue
		} else {
			value = resolver.defaultVal
		}
		resolver.setter(&cfg, value)
	}

	log.Printf("config: addr=%s log-level=%s", cfg.Addr, cfg.LogLevel)
	return cfg
}
