package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	SettingsFile         string // path to the driver settings file
	APIURL               string // overrides the api url from the settings file
	WebURL               string // base url of the dashboard web api
	DB                   string // connection string for the report journal (optional)
	NatsURL              string // URL of the NATS server used as host surface
	NatsSubjectPrefix    string // prefix for all NATS subjects of this agent
	HTTPAddr             string // listen addr for the local http surface (empty: disabled)
	WaitForServices      string // duration to wait for other services to be ready
	LogLevel             string // sets the log level (zap log level values)
	SQLLogLevel          string // sets the log level for sql subsystem
	LogFormat            string // text vs json
	LogFilter            string // zapfilter rules
	MigrationSourceURL   string // location of migration files (empty: embedded)
	EnableTelemetry      bool   // enable telemetry
	TelemetryEndpoint    string // endpoint for telemetry
	RequestTimeout       string // timeout for requests against the optimization api
	GameName             string // only ticks of this game are processed (empty: all)
	AbortOnContextChange bool   // abort a running test when car/track changes
	TickQueueSize        int    // number of pending events the session loop buffers
	PollInterval         string // dashboard refresh interval
	ReplayRate           int    // ticks per second when replaying recorded ticks
	ProfilingPort        int    // port for profiling
	PrintTicks           bool   // if true, tick payloads will be printed on debug level
)
