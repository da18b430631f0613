package config

import "fmt"

// Configs shared by every process in the deployment.

type ServerConfig struct {
	Port     string
	Name     string
	LogLevel string // debug, info, warn, error
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN renders the gorm/pgx connection string. TLS to the database is a
// deployment concern handled outside the process.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

type RedisConfig struct {
	Host string
	Port string
}

// Addr renders the host:port form the redis client takes.
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}
