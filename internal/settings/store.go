package settings

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const settingsFileName = "settings.toml"

type GitHubSettings struct {
	Owner    string `json:"owner" toml:"owner"`
	Repo     string `json:"repo" toml:"repo"`
	BasePath string `json:"base_path" toml:"base_path"`
	Token    string `json:"token,omitempty" toml:"token,omitempty"`
}

type OpenAISettings struct {
	Endpoint string `json:"endpoint" toml:"endpoint"`
	Model    string `json:"model" toml:"model"`
	APIKey   string `json:"api_key,omitempty" toml:"api_key,omitempty"`
}

type Settings struct {
	GitHub GitHubSettings `json:"github" toml:"github"`
	OpenAI OpenAISettings `json:"openai" toml:"openai"`
}

type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) LoadOrInit() (Settings, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Settings{}, err
	}

	path := filepath.Join(s.dir, settingsFileName)
	if b, err := os.ReadFile(path); err == nil {
		var cfg Settings
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Settings{}, err
		}
		return normalize(cfg), nil
	} else if !os.IsNotExist(err) {
		return Settings{}, err
	}

	cfg := normalize(Settings{})
	if err := writeTOMLAtomically(path, cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func (s *Store) Save(cfg Settings) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(filepath.Join(s.dir, settingsFileName), normalize(cfg))
}

func normalize(cfg Settings) Settings {
	cfg.GitHub.Owner = strings.TrimSpace(cfg.GitHub.Owner)
	cfg.GitHub.Repo = strings.TrimSpace(cfg.GitHub.Repo)
	cfg.GitHub.BasePath = strings.Trim(strings.TrimSpace(cfg.GitHub.BasePath), "/")
	if cfg.GitHub.BasePath == "" {
		cfg.GitHub.BasePath = "product-management"
	}
	cfg.OpenAI.Endpoint = strings.TrimSpace(cfg.OpenAI.Endpoint)
	cfg.OpenAI.Model = strings.TrimSpace(cfg.OpenAI.Model)
	return cfg
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
