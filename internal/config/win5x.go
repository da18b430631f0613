package config

import "time"

// MaxPhaseDuration bounds every operator-configured phase duration.
const MaxPhaseDuration = 120 * time.Second

// Win5xConfig holds configuration for the Win5x wheel game
type Win5xConfig struct {
	Server   ServerConfig
	Redis    RedisConfig
	Database DatabaseConfig
	RepoType string // memory | redis
	Game     GameSettings
}

// GameSettings are the round-engine tunables. Amounts are int64 minor units.
type GameSettings struct {
	BettingDuration         time.Duration
	SpinPreparationDuration time.Duration
	SpinningDuration        time.Duration
	ResultDuration          time.Duration
	TransitionDuration      time.Duration

	MinBetAmount     int64
	MaxBetAmount     int64
	PayoutMultiplier int64

	// ZeroPolicy selects how zero-bet outcomes are treated by the winner
	// selector: "zeros-count" (zeros are genuine minima) or "zeros-absent"
	// (minimum taken over nonzero outcomes only).
	ZeroPolicy string
}

// LoadWin5xConfig loads configuration for the Win5x game service
func LoadWin5xConfig() *Win5xConfig {
	redisConfig := RedisConfig{
		Host: getEnv("REDIS_HOST", "localhost"),
		Port: getEnv("REDIS_PORT", "6379"),
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "win5x_user"),
		Password: getEnv("DB_PASSWORD", "win5x_pass"),
		Name:     getEnv("DB_NAME", "win5x_db"),
	}

	return &Win5xConfig{
		Server: ServerConfig{
			Port:     getEnv("GAME_SERVER_PORT", "8082"),
			Name:     "win5x-engine",
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Redis:    redisConfig,
		Database: dbConfig,
		RepoType: getEnv("WIN5X_REPO_TYPE", "memory"),
		Game: GameSettings{
			BettingDuration:         getEnvSeconds("WIN5X_BETTING_SECONDS", 30*time.Second, MaxPhaseDuration),
			SpinPreparationDuration: getEnvSeconds("WIN5X_SPIN_PREP_SECONDS", 10*time.Second, MaxPhaseDuration),
			SpinningDuration:        getEnvSeconds("WIN5X_SPINNING_SECONDS", 11*time.Second, MaxPhaseDuration),
			ResultDuration:          getEnvSeconds("WIN5X_RESULT_SECONDS", 9*time.Second, MaxPhaseDuration),
			TransitionDuration:      getEnvSeconds("WIN5X_TRANSITION_SECONDS", 3*time.Second, MaxPhaseDuration),

			MinBetAmount:     getEnvInt64("WIN5X_MIN_BET", 10),
			MaxBetAmount:     getEnvInt64("WIN5X_MAX_BET", 5000),
			PayoutMultiplier: getEnvInt64("WIN5X_PAYOUT_MULTIPLIER", 5),

			ZeroPolicy: getEnv("WIN5X_ZERO_POLICY", "zeros-count"),
		},
	}
}
