package config

// EnvPrefix namespaces every environment variable consumed by the service.
const EnvPrefix = "NORDTOLK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "NORDTOLK_DB_DSN"
	EnvDBHost = "NORDTOLK_DB_HOST"
	EnvDBUser = "NORDTOLK_DB_USER"
	EnvDBName = "NORDTOLK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
