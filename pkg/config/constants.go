package config

// EnvPrefix scopes every environment variable read by envconfig.
const EnvPrefix = "KARAKOU"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "KARAKOU_DB_DSN"
	EnvDBHost = "KARAKOU_DB_HOST"
	EnvDBUser = "KARAKOU_DB_USER"
	EnvDBName = "KARAKOU_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
