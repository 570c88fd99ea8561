package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Agents    AgentsConfig    `toml:"agents"`
	Calendar  CalendarConfig  `toml:"calendar"`
	Formatter FormatterConfig `toml:"formatter"`
	LLM       LLMConfig       `toml:"llm"`
	Telegram  TelegramConfig  `toml:"telegram"`
	Output    OutputConfig    `toml:"output"`
	MsgLog    MsgLogConfig    `toml:"msglog"`
	Audit     AuditConfig     `toml:"audit"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Log       LogConfig       `toml:"log"`
	Tracing   TracingConfig   `toml:"tracing"`
}

// AgentsConfig says where each agent listens. Host is what goes into agent
// cards and discovery URLs.
type AgentsConfig struct {
	Bind             string `toml:"bind"`
	Host             string `toml:"host"`
	OrchestratorPort int    `toml:"orchestrator_port"`
	CalendarPort     int    `toml:"calendar_port"`
	FormatterPort    int    `toml:"formatter_port"`
	TelegramPort     int    `toml:"telegram_port"`
	// Discovery overrides the URLs the orchestrator probes.
	Discovery  []string `toml:"discovery"`
	MaxRetries int      `toml:"max_retries"`
}

type CalendarConfig struct {
	CredentialsPath string        `toml:"credentials_path"`
	TokenPath       string        `toml:"token_path"`
	Timezone        string        `toml:"timezone"`
	Calendars       []CalendarRef `toml:"calendars"`
}

type CalendarRef struct {
	ID    string `toml:"id"`
	Label string `toml:"label"`
}

type FormatterConfig struct {
	Style string `toml:"style"`
}

// LLMConfig selects the text generator behind the markdown style. An empty
// BaseURL means the provider default (http://localhost:11434 for ollama).
type LLMConfig struct {
	Provider  string `toml:"provider"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
	System    string `toml:"system"`
}

type TelegramConfig struct {
	BotToken  string `toml:"bot_token"`
	ChatID    string `toml:"chat_id"`
	ServerURL string `toml:"server_url"`
}

type OutputConfig struct {
	Dir string `toml:"dir"`
}

type MsgLogConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type ScheduleConfig struct {
	Spec          string `toml:"spec"`
	NextWeek      bool   `toml:"next_week"`
	WebhookSecret string `toml:"webhook_secret"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type TracingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

func Default() *Config {
	return &Config{
		Agents: AgentsConfig{
			Bind:             "loopback",
			Host:             "localhost",
			OrchestratorPort: 5000,
			CalendarPort:     5001,
			FormatterPort:    5002,
			TelegramPort:     5003,
			MaxRetries:       2,
		},
		Calendar: CalendarConfig{
			CredentialsPath: "credentials.json",
			TokenPath:       "token.json",
			Timezone:        "America/Los_Angeles",
			Calendars:       []CalendarRef{{ID: "primary", Label: "You"}},
		},
		Formatter: FormatterConfig{
			Style: "chat",
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.2",
		},
		Output: OutputConfig{
			Dir: filepath.Join("output", "summaries"),
		},
		MsgLog: MsgLogConfig{
			Enabled: true,
			Dir:     filepath.Join("logs", "a2a_messages"),
		},
		Audit: AuditConfig{
			Path: filepath.Join(DataDir(), "audit.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadEnvFiles reads .env.local then .env. Variables already set in the
// process win.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}
	return nil
}

// Load reads the TOML file at path (a missing file yields defaults) and
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = filepath.Join(DataDir(), "audit.db")
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("GOOGLE_CALENDAR_CREDENTIALS_PATH", &c.Calendar.CredentialsPath)
	str("GOOGLE_CALENDAR_TOKEN_PATH", &c.Calendar.TokenPath)
	str("USER_TIMEZONE", &c.Calendar.Timezone)
	str("OLLAMA_HOST", &c.LLM.BaseURL)
	str("OLLAMA_MODEL", &c.LLM.Model)
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)

	if ids := getenv("CALENDAR_IDS"); ids != "" {
		c.Calendar.Calendars = pairCalendars(ids, getenv("CALENDAR_LABELS"))
	}

	ports := []struct {
		key string
		dst *int
	}{
		{"ORCHESTRATOR_PORT", &c.Agents.OrchestratorPort},
		{"CALENDAR_PORT", &c.Agents.CalendarPort},
		{"FORMATTER_PORT", &c.Agents.FormatterPort},
		{"TELEGRAM_PORT", &c.Agents.TelegramPort},
	}
	for _, p := range ports {
		v := getenv(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("invalid %s %q", p.key, v)
		}
		*p.dst = n
	}
	return nil
}

// pairCalendars zips comma-separated ids and labels by index. An id
// without a label is labelled with itself.
func pairCalendars(ids, labels string) []CalendarRef {
	var ls []string
	if labels != "" {
		ls = strings.Split(labels, ",")
	}
	var refs []CalendarRef
	for i, id := range strings.Split(ids, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		label := id
		if i < len(ls) && strings.TrimSpace(ls[i]) != "" {
			label = strings.TrimSpace(ls[i])
		}
		refs = append(refs, CalendarRef{ID: id, Label: label})
	}
	return refs
}

// URL is the base URL advertised for an agent on port.
func (a AgentsConfig) URL(port int) string {
	return fmt.Sprintf("http://%s:%d", a.Host, port)
}

// DiscoveryURLs are the peers the orchestrator probes, in probe order.
func (a AgentsConfig) DiscoveryURLs() []string {
	if len(a.Discovery) > 0 {
		return a.Discovery
	}
	return []string{a.URL(a.CalendarPort), a.URL(a.FormatterPort), a.URL(a.TelegramPort)}
}

func DataDir() string {
	if dir := os.Getenv("WEEKLYPREVIEW_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".weeklypreview"
	}
	return filepath.Join(home, ".weeklypreview")
}

func DefaultConfigPath() string {
	return filepath.Join(DataDir(), "weeklypreview.toml")
}

func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0700)
}
