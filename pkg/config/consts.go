package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "OPENSHELF"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "OPENSHELF_DB_DSN"
	EnvDBHost = "OPENSHELF_DB_HOST"
	EnvDBUser = "OPENSHELF_DB_USER"
	EnvDBName = "OPENSHELF_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
