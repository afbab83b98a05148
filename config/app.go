package config

type App struct {
	Port        string `env:"APP_PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Env         string `env:"APP_ENV" default:"dev"`

	// Loan policy knobs; defaults match the library's standing rules.
	LoanPeriodDays   int     `env:"LOAN_PERIOD_DAYS" default:"14"`
	MaxExtendDays    int     `env:"LOAN_MAX_EXTEND_DAYS" default:"14"`
	DailyFineRate    float64 `env:"LOAN_DAILY_FINE_RATE" default:"1000"`
	MemberLoanCap    int     `env:"LOAN_CAP_MEMBER" default:"3"`
	LibrarianLoanCap int     `env:"LOAN_CAP_LIBRARIAN" default:"10"`
}
