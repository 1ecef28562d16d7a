package config

// Version is the release version.
// Can be set at build time using: -ldflags "-X github.com/funvibe/deft/internal/config.Version=v0.4.0"
var Version = "0.4.0-dev"

// ConfigFileName is the canonical project configuration file.
const ConfigFileName = "deft.yaml"

// ConfigFileNames are all recognized configuration file names, in
// lookup order.
var ConfigFileNames = []string{"deft.yaml", "deft.yml"}

// Fixture inputs come as single YAML documents or txtar archives
// bundling many of them.
const (
	FixtureFileExt    = ".yaml"
	FixtureAltExt     = ".yml"
	FixtureArchiveExt = ".txtar"
)

// BaselineFileName is the default location of the accepted-run database.
const BaselineFileName = "baseline.db"

// DebugEnvVar enables verbose CLI tracing when set to a non-empty value.
const DebugEnvVar = "DEFT_DEBUG"

// TestModeEnvVar marks a run driven by the test harness.
const TestModeEnvVar = "DEFT_TEST_MODE"

// IsTestMode indicates if the program is running in test mode.
// This is set once at startup in the CLI entry point; test runs skip
// side effects such as REPL history persistence.
var IsTestMode = false

// HistoryFileName is the REPL history file, stored in the user home
// directory.
const HistoryFileName = ".deft_history"

// DefaultListenAddr is where `deft serve` binds unless told otherwise.
const DefaultListenAddr = "127.0.0.1:7433"
