package config

import "time"

type GatewayConfig struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
}

type WebSocketConfig struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBufferSize int
}

// LoadGatewayConfig loads configuration for the gateway
func LoadGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		Server: ServerConfig{
			Port:     getEnv("GATEWAY_PORT", "8081"),
			Name:     "gateway",
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		WebSocket: WebSocketConfig{
			PingInterval:   time.Duration(getEnvInt("WS_PING_INTERVAL_SECONDS", 54)) * time.Second,
			WriteWait:      time.Duration(getEnvInt("WS_WRITE_WAIT_SECONDS", 30)) * time.Second,
			PongWait:       time.Duration(getEnvInt("WS_PONG_WAIT_SECONDS", 60)) * time.Second,
			MaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 4096)),
			SendBufferSize: getEnvInt("WS_SEND_BUFFER_SIZE", 1024),
		},
	}
}
