package database

import coreconfig "github.com/m3rciful/copperbot/core/config"

func configFixture() coreconfig.DatabaseConfig {
	return coreconfig.DatabaseConfig{
		Host:           "db",
		Port:           "5432",
		User:           "bot",
		Password:       "s@cret",
		Name:           "wallet",
		SSLMode:        "disable",
		MaxConnections: 3,
	}
}
