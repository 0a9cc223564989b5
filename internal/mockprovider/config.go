package mockprovider

// Config is read from the environment by cmd/mock-saltedge.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8081"`
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppID       string `env:"MOCK_SALTEDGE_APP_ID" envDefault:"mock-app-id"`
	Secret      string `env:"MOCK_SALTEDGE_SECRET" envDefault:"mock-secret"`
	CallbackURL string `env:"MOCK_SALTEDGE_CALLBACK_URL" envDefault:"http://localhost:8080/api/saltedge/callbacks"`

	// CallbackPrivateKey signs callbacks when set (PEM, PKCS#1 or PKCS#8).
	CallbackPrivateKey string `env:"MOCK_SALTEDGE_CALLBACK_PRIVATE_KEY"`
	PageSize           int    `env:"MOCK_SALTEDGE_PAGE_SIZE" envDefault:"100"`
	AccountsPerConn    int    `env:"MOCK_SALTEDGE_ACCOUNTS" envDefault:"2"`
	TransactionsPerAcc int    `env:"MOCK_SALTEDGE_TRANSACTIONS" envDefault:"5"`
}
