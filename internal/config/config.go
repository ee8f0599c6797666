package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	Wompi   Wompi   `envPrefix:"WOMPI_"`
	Billing Billing `envPrefix:"BILLING_"`
	Auth    Auth    `envPrefix:"AUTH_"`
}

type Wompi struct {
	BaseApiURL      string `env:"BASE_API_URL" envDefault:"https://sandbox.wompi.co/v1"`
	PublicKey       string `env:"PUBLIC_KEY"`
	PrivateKey      string `env:"PRIVATE_KEY"`
	WebhookSecret   string `env:"WEBHOOK_SECRET"`
	IntegritySecret string `env:"INTEGRITY_SECRET"`
	RedirectURL     string `env:"REDIRECT_URL"`
}

type Billing struct {
	Currency         string `env:"CURRENCY" envDefault:"COP"`
	GraceDays        int    `env:"GRACE_DAYS" envDefault:"3"`
	MaxRetryAttempts int    `env:"MAX_RETRY_ATTEMPTS" envDefault:"5"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
