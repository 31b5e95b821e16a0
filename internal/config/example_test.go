package config_test

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"focuslog/internal/config"
)

func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("poll:", cfg.Tracker.PollInterval)
	fmt.Println("break:", cfg.Tracker.BreakInterval)
	fmt.Println("category:", cfg.Categories.Default)
	// Output:
	// poll: 1s
	// break: 50m0s
	// category: Misc
}

func ExampleConfig_SetBreakInterval() {
	cfg := config.Default()

	for _, d := range []time.Duration{25 * time.Minute, 5 * time.Minute} {
		if err := cfg.SetBreakInterval(d); err != nil {
			fmt.Println("rejected:", err)
			continue
		}
		fmt.Println("break every", cfg.Tracker.BreakInterval)
	}
	// Output:
	// break every 25m0s
	// rejected: break interval cannot be less than 10m0s
}

// Values absent from the file keep their defaults.
func ExampleLoadFile() {
	dir, err := os.MkdirTemp("", "focuslog-config")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.yaml")
	data := []byte("categories:\n  default: Other\n  prompt_timeout: 2m\nweb:\n  port: 8420\n")
	if err := os.WriteFile(path, data, 0600); err != nil {
		fmt.Println(err)
		return
	}

	cfg := config.Default()
	if err := config.LoadFile(cfg, path); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(cfg.Categories.Default, cfg.Categories.PromptTimeout, cfg.Web.Port)
	fmt.Println(cfg.Tracker.PollInterval, cfg.Validate() == nil)
	// Output:
	// Other 2m0s 8420
	// 1s true
}
