// Package config loads the window manager's YAML configuration file and its
// environment settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oxidewm/oxidewm/internal/command"
)

// CommandSpec is one command of a key binding, as written in the file.
type CommandSpec struct {
	Command string `yaml:"command"`
	Args    string `yaml:"args,omitempty"`
}

// Binding maps a key chord to one command (Command/Args) or to a list of
// commands run in order (Commands).
type Binding struct {
	Keys     []string      `yaml:"keys"`
	Command  string        `yaml:"command,omitempty"`
	Args     string        `yaml:"args,omitempty"`
	Commands []CommandSpec `yaml:"commands,omitempty"`
}

// Resolve parses the binding's commands.
func (b Binding) Resolve() ([]command.Command, error) {
	specs := b.Commands
	if b.Command != "" {
		specs = append([]CommandSpec{{Command: b.Command, Args: b.Args}}, specs...)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("binding %v has no command", b.Keys)
	}
	cmds := make([]command.Command, 0, len(specs))
	for _, s := range specs {
		c, err := command.Parse(s.Command, s.Args)
		if err != nil {
			return nil, fmt.Errorf("binding %v: %w", b.Keys, err)
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

// IPC configures the control socket.
type IPC struct {
	// WaitTimeout bounds a blocking state wait, so that waits from clients
	// that went away do not pile up.
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

// Config is the contents of config.yml.
type Config struct {
	Cmds                   []Binding     `yaml:"cmds"`
	Exec                   []string      `yaml:"exec"`
	ExecAlways             []string      `yaml:"exec_always"`
	BorderWidth            uint16        `yaml:"border_width"`
	BorderColor            string        `yaml:"border_color"`
	BorderFocusColor       string        `yaml:"border_focus_color"`
	Gap                    uint16        `yaml:"gap"`
	TitlebarHeight         uint16        `yaml:"titlebar_height"`
	ReclaimEmptyWorkspaces bool          `yaml:"reclaim_empty_workspaces"`
	TickInterval           time.Duration `yaml:"tick_interval"`
	IPC                    IPC           `yaml:"ipc"`

	// Path is the file the config was read from, empty for the defaults.
	Path string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{
		BorderWidth:      3,
		BorderColor:      "0xFFFFFF",
		BorderFocusColor: "0x000000",
		Gap:              3,
		TitlebarHeight:   5,
		TickInterval:     2 * time.Second,
		IPC:              IPC{WaitTimeout: 5 * time.Minute},
		Cmds: []Binding{
			{Keys: []string{"M", "Return"}, Command: "Exec", Args: "xterm"},
			{Keys: []string{"M", "Left"}, Command: "Focus", Args: "left"},
			{Keys: []string{"M", "Right"}, Command: "Focus", Args: "right"},
			{Keys: []string{"M", "Up"}, Command: "Focus", Args: "up"},
			{Keys: []string{"M", "Down"}, Command: "Focus", Args: "down"},
			{Keys: []string{"M", "S", "Left"}, Command: "Move", Args: "left"},
			{Keys: []string{"M", "S", "Right"}, Command: "Move", Args: "right"},
			{Keys: []string{"M", "S", "Up"}, Command: "Move", Args: "up"},
			{Keys: []string{"M", "S", "Down"}, Command: "Move", Args: "down"},
			{Keys: []string{"M", "S", "q"}, Command: "Kill"},
			{Keys: []string{"M", "f"}, Command: "Fullscreen"},
			{Keys: []string{"M", "space"}, Command: "NextLayout"},
			{Keys: []string{"M", "n"}, Command: "NewWorkspace"},
			{Keys: []string{"M", "Tab"}, Command: "GoToWorkspace", Args: "next"},
			{Keys: []string{"M", "S", "Tab"}, Command: "GoToWorkspace", Args: "previous"},
			{Keys: []string{"M", "S", "r"}, Command: "Restart"},
			{Keys: []string{"M", "S", "e"}, Command: "Quit"},
		},
	}
	for i := 1; i <= 9; i++ {
		n := strconv.Itoa(i)
		c.Cmds = append(c.Cmds, Binding{Keys: []string{"M", n}, Command: "GoToWorkspace", Args: n})
	}
	return c
}

// Parse decodes YAML over the defaults, so that missing keys keep their
// default values.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks colors and commands.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseColor(c.BorderColor); err != nil {
		errs = append(errs, fmt.Errorf("border_color: %w", err))
	}
	if _, err := ParseColor(c.BorderFocusColor); err != nil {
		errs = append(errs, fmt.Errorf("border_focus_color: %w", err))
	}
	for _, b := range c.Cmds {
		if len(b.Keys) == 0 {
			errs = append(errs, errors.New("binding without keys"))
			continue
		}
		if _, err := b.Resolve(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.TickInterval < 0 {
		errs = append(errs, errors.New("tick_interval must not be negative"))
	}
	return errors.Join(errs...)
}

// SearchPaths lists where Load looks for config.yml, in order.
func SearchPaths() []string {
	var paths []string
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		paths = append(paths, filepath.Join(dir, "oxidewm", "config.yml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "oxidewm", "config.yml"))
	}
	return append(paths, "/etc/oxidewm/config.yml")
}

// Load reads the config at path or, when path is empty, the first file in
// SearchPaths. With no file at all it returns Default.
func Load(path string) (*Config, error) {
	if path != "" {
		return loadFile(path)
	}
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return loadFile(p)
		}
	}
	return Default(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// ParseColor parses "0xRRGGBB" or "#RRGGBB" into a 24-bit pixel value.
func ParseColor(s string) (uint32, error) {
	t := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(t, "#"):
		t = t[1:]
	case strings.HasPrefix(t, "0x"), strings.HasPrefix(t, "0X"):
		t = t[2:]
	}
	if len(t) != 6 {
		return 0, fmt.Errorf("color %q is not 0xRRGGBB or #RRGGBB", s)
	}
	v, err := strconv.ParseUint(t, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", s, err)
	}
	return uint32(v), nil
}
