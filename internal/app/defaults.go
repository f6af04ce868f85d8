package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the locations used when the command line does not name them.
type Defaults struct {
	ConfigPath string
	BaseDir    string // Index database, logs and, unless overridden, content
	ContentDir string
}

// GetDefaults resolves the default locations. Environment variables take
// precedence over the XDG style home directory layout:
//   - BLOGDEX_CONFIG_PATH: config file (default ~/.config/blogdex.toml)
//   - BLOGDEX_HOME: base directory (default ~/.local/share/blogdex)
//   - BLOGDEX_CONTENT_DIR: content tree (default <base>/content)
func GetDefaults() (*Defaults, error) {
	var home string
	fromHome := func(elem ...string) (string, error) {
		if home == "" {
			dir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			home = dir
		}
		return filepath.Join(append([]string{home}, elem...)...), nil
	}

	d := &Defaults{
		ConfigPath: os.Getenv("BLOGDEX_CONFIG_PATH"),
		BaseDir:    os.Getenv("BLOGDEX_HOME"),
		ContentDir: os.Getenv("BLOGDEX_CONTENT_DIR"),
	}

	var err error
	if d.ConfigPath == "" {
		if d.ConfigPath, err = fromHome(".config", "blogdex.toml"); err != nil {
			return nil, err
		}
	}
	if d.BaseDir == "" {
		if d.BaseDir, err = fromHome(".local", "share", "blogdex"); err != nil {
			return nil, err
		}
	}
	if d.ContentDir == "" {
		d.ContentDir = filepath.Join(d.BaseDir, "content")
	}
	return d, nil
}
