// Package config defines the configuration contract and handles loading and
// validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken    = "TELEGRAM_TOKEN"
	KeyOpenAIAPIKey     = "OPENAI_API_KEY"
	KeyBotOwner         = "BOT_OWNER"
	KeyBotOwnerUsername = "BOT_OWNER_USERNAME"
	KeyGoogleTTSAPIKey  = "GOOGLE_TTS_API_KEY"
	KeyStoreBackend     = "STORE_BACKEND"
	KeySettingsFile     = "SETTINGS_FILE"
	KeyStatsFile        = "STATS_FILE"
	KeyMongoURI         = "MONGO_URI"
	KeyMongoDB          = "MONGO_DB"
	KeyAppEnv           = "APP_ENV"
	KeyLogLevel         = "LOG_LEVEL"
	KeyHTTPPort         = "HTTP_PORT"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Store backend selectors.
	StoreBackendFile  = "file"
	StoreBackendMongo = "mongo"

	// Defaults for optional settings.
	DefaultAppEnv       = EnvProduction
	DefaultLogLevel     = "info"
	DefaultHTTPPort     = 8080
	DefaultStoreBackend = StoreBackendFile
	DefaultSettingsFile = "chat_settings.json"
	DefaultStatsFile    = "usage_stats.json"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
	},
	{
		Key:         KeyOpenAIAPIKey,
		Example:     "sk-...",
		Required:    true,
		Description: "OpenAI API key used for transcription, translation, summaries, and speech.",
	},
	{
		Key:         KeyBotOwner,
		Example:     "123456789",
		Required:    true,
		Description: "Telegram user_id allowed to read usage statistics.",
	},
	{
		Key:         KeyBotOwnerUsername,
		Example:     "someuser",
		Description: "Optional owner username; matched case-insensitively as an alternative to the numeric id.",
	},
	{
		Key:         KeyGoogleTTSAPIKey,
		Example:     "AIza...",
		Description: "Google Cloud Text-to-Speech API key; enables the Indonesian voice when set.",
	},
	{
		Key:         KeyStoreBackend,
		Example:     StoreBackendFile + " / " + StoreBackendMongo,
		Default:     DefaultStoreBackend,
		Description: "Persistence backend for settings and usage statistics.",
		Notes:       "Mongo requires " + KeyMongoURI + " and " + KeyMongoDB + ".",
	},
	{
		Key:         KeySettingsFile,
		Example:     DefaultSettingsFile,
		Default:     DefaultSettingsFile,
		Description: "Path of the chat settings JSON file (file backend).",
	},
	{
		Key:         KeyStatsFile,
		Example:     DefaultStatsFile,
		Default:     DefaultStatsFile,
		Description: "Path of the usage statistics JSON file (file backend).",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Description: "MongoDB connection string (mongo backend).",
	},
	{
		Key:         KeyMongoDB,
		Example:     "voice_bot",
		Description: "MongoDB database name (mongo backend).",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP health/diagnostics port.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken    string
	OpenAIAPIKey     string
	BotOwnerID       int64
	BotOwnerUsername string
	GoogleTTSAPIKey  string
	StoreBackend     string
	SettingsFile     string
	StatsFile        string
	MongoURI         string
	MongoDB          string
	AppEnv           string
	LogLevel         string
	HTTPPort         int
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:           firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken:    strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		OpenAIAPIKey:     strings.TrimSpace(os.Getenv(KeyOpenAIAPIKey)),
		BotOwnerUsername: strings.TrimPrefix(strings.TrimSpace(os.Getenv(KeyBotOwnerUsername)), "@"),
		GoogleTTSAPIKey:  strings.TrimSpace(os.Getenv(KeyGoogleTTSAPIKey)),
		StoreBackend:     firstNonEmpty(normalizeEnv(os.Getenv(KeyStoreBackend)), DefaultStoreBackend),
		SettingsFile:     firstNonEmpty(strings.TrimSpace(os.Getenv(KeySettingsFile)), DefaultSettingsFile),
		StatsFile:        firstNonEmpty(strings.TrimSpace(os.Getenv(KeyStatsFile)), DefaultStatsFile),
		MongoURI:         strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:          strings.TrimSpace(os.Getenv(KeyMongoDB)),
		LogLevel:         firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:         DefaultHTTPPort,
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if cfg.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}

	if cfg.OpenAIAPIKey == "" {
		missing = append(missing, KeyOpenAIAPIKey)
	}

	ownerRaw := strings.TrimSpace(os.Getenv(KeyBotOwner))
	if ownerRaw == "" {
		missing = append(missing, KeyBotOwner)
	} else {
		ownerID, parseErr := strconv.ParseInt(ownerRaw, 10, 64)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyBotOwner, parseErr)
		}
		cfg.BotOwnerID = ownerID
	}

	switch cfg.StoreBackend {
	case StoreBackendFile:
	case StoreBackendMongo:
		if cfg.MongoURI == "" {
			missing = append(missing, KeyMongoURI)
		} else if err := validateMongoURI(cfg.MongoURI); err != nil {
			return Config{}, err
		}
		if cfg.MongoDB == "" {
			missing = append(missing, KeyMongoDB)
		}
	default:
		return Config{}, fmt.Errorf("invalid %s: must be %q or %q", KeyStoreBackend, StoreBackendFile, StoreBackendMongo)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	httpPortRaw := strings.TrimSpace(os.Getenv(KeyHTTPPort))
	if httpPortRaw != "" {
		port, parseErr := strconv.Atoi(httpPortRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		if port <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyHTTPPort)
		}
		cfg.HTTPPort = port
	}

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// UsesMongo reports if the mongo persistence backend is selected.
func (c Config) UsesMongo() bool {
	return c.StoreBackend == StoreBackendMongo
}

// FormatRedacted renders the resolved configuration for startup logs with
// secrets masked.
func FormatRedacted(cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "app_env: %s\n", cfg.AppEnv)
	fmt.Fprintf(&b, "log_level: %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "http_port: %d\n", cfg.HTTPPort)
	fmt.Fprintf(&b, "telegram_token: %s\n", maskSecret(cfg.TelegramToken))
	fmt.Fprintf(&b, "openai_api_key: %s\n", maskSecret(cfg.OpenAIAPIKey))
	fmt.Fprintf(&b, "google_tts_api_key: %s\n", maskSecret(cfg.GoogleTTSAPIKey))
	fmt.Fprintf(&b, "bot_owner: %d\n", cfg.BotOwnerID)
	if cfg.BotOwnerUsername != "" {
		fmt.Fprintf(&b, "bot_owner_username: %s\n", cfg.BotOwnerUsername)
	}
	fmt.Fprintf(&b, "store_backend: %s\n", cfg.StoreBackend)
	if cfg.UsesMongo() {
		fmt.Fprintf(&b, "mongo_uri: %s\n", redactMongoURI(cfg.MongoURI))
		fmt.Fprintf(&b, "mongo_db: %s\n", cfg.MongoDB)
	} else {
		fmt.Fprintf(&b, "settings_file: %s\n", cfg.SettingsFile)
		fmt.Fprintf(&b, "stats_file: %s\n", cfg.StatsFile)
	}

	return b.String()
}

func maskSecret(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	if len(secret) <= 4 {
		return "...redacted"
	}
	return secret[:4] + "...redacted"
}

func redactMongoURI(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.User == nil {
		return uri
	}
	parsed.User = nil
	return parsed.String()
}

func validateMongoURI(uri string) error {
	if strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://") {
		return nil
	}
	return fmt.Errorf("invalid %s: must start with mongodb:// or mongodb+srv://", KeyMongoURI)
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
