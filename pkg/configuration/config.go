package configuration

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// EnvPrefix leitet Umgebungsvariablen ein, die Dateiwerte überschreiben:
// RETROBASIC_INTERPRETER_MAX_FOR_DEPTH=32 ersetzt [Interpreter] max_for_depth.
const EnvPrefix = "RETROBASIC_"

// LocalConfigName wird neben der Hauptdatei gesucht und überschreibt deren Werte
const LocalConfigName = "settings.local.cfg"

// Config verwaltet die Anwendungskonfiguration
type Config struct {
	settings map[string]map[string]string
	filePath string
	mu       sync.RWMutex
}

var (
	globalConfig *Config
	once         sync.Once
)

// Reihenfolge der Sektionen beim Schreiben
var sectionOrder = []string{"Interpreter", "Server", "Network", "Database", "Authentication", "JWT", "TLS", "Debug"}

// Initialize lädt die globale Konfiguration. Fehlt die Datei, wird sie mit
// Standardwerten angelegt.
func Initialize(configPath string) error {
	var err error
	once.Do(func() {
		var cfg *Config
		cfg, err = loadConfig(configPath)
		if err != nil {
			return
		}
		local := filepath.Join(filepath.Dir(configPath), LocalConfigName)
		if _, statErr := os.Stat(local); statErr == nil {
			// Fehler in der lokalen Datei sind nicht fatal
			cfg.mergeFile(local)
		}
		globalConfig = cfg
	})
	return err
}

// InitializeDefaults aktiviert die eingebauten Standardwerte ohne Datei
func InitializeDefaults() {
	once.Do(func() {
		cfg := newConfig("")
		cfg.createDefaultConfig()
		globalConfig = cfg
	})
}

func newConfig(filePath string) *Config {
	return &Config{
		settings: make(map[string]map[string]string),
		filePath: filePath,
	}
}

func loadConfig(filePath string) (*Config, error) {
	config := newConfig(filePath)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		config.createDefaultConfig()
		if err := config.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %v", err)
		}
		return config, nil
	}

	if err := config.mergeFile(filePath); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) mergeFile(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()
	return c.parse(file)
}

// parse liest INI-Text; spätere Werte überschreiben frühere
func (c *Config) parse(r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	scanner := bufio.NewScanner(r)
	section := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			if c.settings[section] == nil {
				c.settings[section] = make(map[string]string)
			}
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok || section == "" {
			continue
		}
		c.settings[section][strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return scanner.Err()
}

// createDefaultConfig legt nur Parameter an, die auch gelesen werden
func (c *Config) createDefaultConfig() {
	c.settings["Interpreter"] = map[string]string{
		"max_for_depth":   "64",
		"max_gosub_depth": "256",
		"rnd_seed":        "0",
		"trace":           "false",
	}

	c.settings["Server"] = map[string]string{
		"listen_address":   "",
		"max_sessions":     "50",
		"idle_timeout":     "30m",
		"output_buffer":    "256",
		"allow_guest_save": "false",
		"max_run_time":     "0s",
	}

	c.settings["Network"] = map[string]string{
		"pong_timeout":            "60s",
		"write_wait_timeout":      "10s",
		"max_message_size_kb":     "16",
		"max_messages_per_second": "50",
	}

	c.settings["Database"] = map[string]string{
		"path": "retrobasic.db",
	}

	c.settings["Authentication"] = map[string]string{
		"allow_registration":  "true",
		"enable_guest_access": "true",
		"min_username_length": "3",
		"max_username_length": "20",
		"min_password_length": "6",
		"password_hash_cost":  "12",
	}

	c.settings["JWT"] = map[string]string{
		"secret_key":     "",
		"token_lifetime": "24h",
	}

	c.settings["TLS"] = map[string]string{
		"enable_tls":           "false",
		"enable_letsencrypt":   "false",
		"domain":               "",
		"letsencrypt_email":    "",
		"cert_cache_dir":       "./certs",
		"force_https_redirect": "false",
		"cert_file":            "./certs/server.crt",
		"key_file":             "./certs/server.key",
		"http_port":            "8080",
		"https_port":           "8443",
		"generate_self_signed": "false",
	}

	c.settings["Debug"] = map[string]string{
		"enable_debug_logging": "true",
		"log_level":            "INFO",
		"log_file":             "retrobasic.log",
		"max_log_size_mb":      "10",
		"log_rotation_count":   "3",
		"log_to_console":       "false",
		"log_interpreter":      "true",
		"log_repl":             "false",
		"log_websocket":        "false",
		"log_session":          "true",
		"log_auth":             "true",
		"log_security":         "true",
		"log_database":         "false",
		"log_tls":              "true",
		"log_config":           "true",
		"log_general":          "true",
	}
}

func (c *Config) saveToFile() error {
	if c.filePath == "" {
		return fmt.Errorf("configuration has no file")
	}
	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return err
	}

	file, err := os.Create(c.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	w.WriteString("; RetroBASIC Configuration File\n")
	w.WriteString("; Generated automatically - modify with care\n")
	w.WriteString("; Local overrides belong in " + LocalConfigName + "\n\n")

	for _, section := range orderedSections(c.settings) {
		w.WriteString(fmt.Sprintf("[%s]\n", section))
		keys := make([]string, 0, len(c.settings[section]))
		for key := range c.settings[section] {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			w.WriteString(fmt.Sprintf("%s = %s\n", key, c.settings[section][key]))
		}
		w.WriteString("\n")
	}
	return w.Flush()
}

// orderedSections: bekannte Sektionen zuerst, der Rest alphabetisch
func orderedSections(settings map[string]map[string]string) []string {
	seen := make(map[string]bool, len(settings))
	var out []string
	for _, s := range sectionOrder {
		if _, ok := settings[s]; ok {
			out = append(out, s)
			seen[s] = true
		}
	}
	var rest []string
	for s := range settings {
		if !seen[s] {
			rest = append(rest, s)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func envKey(section, key string) string {
	return EnvPrefix + strings.ToUpper(section) + "_" + strings.ToUpper(key)
}

// GetString gibt einen String-Wert zurück; Umgebungsvariablen haben Vorrang
func GetString(section, key, defaultValue string) string {
	if value, ok := os.LookupEnv(envKey(section, key)); ok {
		return value
	}
	if globalConfig == nil {
		return defaultValue
	}

	globalConfig.mu.RLock()
	defer globalConfig.mu.RUnlock()

	if value, ok := globalConfig.settings[section][key]; ok {
		return value
	}
	return defaultValue
}

// GetInt gibt einen Integer-Wert zurück
func GetInt(section, key string, defaultValue int) int {
	if value, err := strconv.Atoi(GetString(section, key, "")); err == nil {
		return value
	}
	return defaultValue
}

// GetFloat gibt einen Float-Wert zurück
func GetFloat(section, key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(GetString(section, key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

// GetBool gibt einen Boolean-Wert zurück
func GetBool(section, key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(GetString(section, key, "")); err == nil {
		return value
	}
	return defaultValue
}

// GetDuration gibt einen Duration-Wert zurück, z.B. "90s" oder "30m"
func GetDuration(section, key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(GetString(section, key, "")); err == nil {
		return value
	}
	return defaultValue
}

// GetSection returns a copy of all key-value pairs of a section
func GetSection(sectionName string) map[string]string {
	result := make(map[string]string)
	if globalConfig == nil {
		return result
	}

	globalConfig.mu.RLock()
	defer globalConfig.mu.RUnlock()

	for key, value := range globalConfig.settings[sectionName] {
		result[key] = value
	}
	return result
}

// SetString setzt einen Wert im Speicher; Save schreibt ihn zurück
func SetString(section, key, value string) {
	if globalConfig == nil {
		return
	}

	globalConfig.mu.Lock()
	defer globalConfig.mu.Unlock()

	if globalConfig.settings[section] == nil {
		globalConfig.settings[section] = make(map[string]string)
	}
	globalConfig.settings[section][key] = value
}

// Save speichert die aktuelle Konfiguration in die Datei
func Save() error {
	if globalConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}

	globalConfig.mu.RLock()
	defer globalConfig.mu.RUnlock()

	return globalConfig.saveToFile()
}
