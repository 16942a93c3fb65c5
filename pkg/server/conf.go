package server

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
	"github.com/crystal-mush/mushcore/pkg/queue"
)

// Conf holds the game configuration. YAML (.yaml/.yml), TOML (.toml)
// and the TinyMUSH "key value" text format (.conf and anything else) are
// accepted.
type Conf struct {
	// --- Identity ---
	MudName string `yaml:"mud_name" toml:"mud_name"`

	// --- Queue ---
	QueueMaxSize       int `yaml:"queue_max_size" toml:"queue_max_size"`         // handle space
	PlayerQueueLimit   int `yaml:"player_queue_limit" toml:"player_queue_limit"` // per-owner ceiling
	WaitCost           int `yaml:"wait_cost" toml:"wait_cost"`
	MachineCommandCost int `yaml:"machine_command_cost" toml:"machine_command_cost"`
	QueueActiveChunk   int `yaml:"queue_active_chunk" toml:"queue_active_chunk"`
	QueueIdleChunk     int `yaml:"queue_idle_chunk" toml:"queue_idle_chunk"`
	TickIntervalMS     int `yaml:"tick_interval_ms" toml:"tick_interval_ms"`

	// --- Evaluator ---
	FunctionRecursionLimit  int  `yaml:"function_recursion_limit" toml:"function_recursion_limit"`
	FunctionInvocationLimit int  `yaml:"function_invocation_limit" toml:"function_invocation_limit"`
	FunctionCPULimit        int  `yaml:"function_cpu_limit" toml:"function_cpu_limit"` // seconds, 0 = off
	TraceOutputLimit        int  `yaml:"trace_output_limit" toml:"trace_output_limit"`
	TraceTopdown            bool `yaml:"trace_topdown" toml:"trace_topdown"`
	SpaceCompress           bool `yaml:"space_compress" toml:"space_compress"`
	AnsiColors              bool `yaml:"ansi_colors" toml:"ansi_colors"`
	CCmdSubst               bool `yaml:"c_cmd_subst" toml:"c_cmd_subst"`
	OutputLimit             int  `yaml:"output_limit" toml:"output_limit"`

	// --- Economy / security ---
	GodDBRef      int `yaml:"god_dbref" toml:"god_dbref"`
	StartingMoney int `yaml:"starting_money" toml:"starting_money"`

	// --- Infrastructure ---
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"`
	BoltPath    string `yaml:"bolt_path" toml:"bolt_path"`
}

// DefaultConf returns a Conf with TinyMUSH defaults.
func DefaultConf() *Conf {
	return &Conf{
		MudName:                 "MushCore",
		QueueMaxSize:            10000,
		PlayerQueueLimit:        100,
		WaitCost:                10,
		MachineCommandCost:      64,
		QueueActiveChunk:        10,
		QueueIdleChunk:          10,
		TickIntervalMS:          100,
		FunctionRecursionLimit:  50,
		FunctionInvocationLimit: 2500,
		FunctionCPULimit:        60,
		TraceOutputLimit:        200,
		TraceTopdown:            true,
		SpaceCompress:           true,
		AnsiColors:              true,
		CCmdSubst:               false,
		OutputLimit:             eval.DefaultBufferSize,
		GodDBRef:                1,
		StartingMoney:           150,
	}
}

// LoadConf loads a config file. The format follows the extension.
func LoadConf(path string) (*Conf, error) {
	c := DefaultConf()
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = c.loadYAML(path)
	case ".toml":
		err = c.loadTOML(path)
	default:
		err = c.loadText(path)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("conf: %s: %w", path, err)
	}
	return c, nil
}

func (c *Conf) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("conf: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("conf: parse %s: %w", path, err)
	}
	return nil
}

func (c *Conf) loadTOML(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("conf: parse %s: %w", path, err)
	}
	for _, k := range md.Undecoded() {
		log.Printf("CONF: %s: unknown key %q ignored", path, k.String())
	}
	return nil
}

func (c *Conf) loadText(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("conf: read %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, val := splitKeyVal(line)
		c.setText(strings.ToLower(key), val)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("conf: parse %s: %w", path, err)
	}
	return nil
}

func (c *Conf) setText(key, val string) {
	switch key {
	case "mud_name":
		c.MudName = val
	case "queue_max_size", "max_qpid":
		c.QueueMaxSize = atoi(val, c.QueueMaxSize)
	case "player_queue_limit":
		c.PlayerQueueLimit = atoi(val, c.PlayerQueueLimit)
	case "wait_cost":
		c.WaitCost = atoi(val, c.WaitCost)
	case "machine_command_cost":
		c.MachineCommandCost = atoi(val, c.MachineCommandCost)
	case "queue_active_chunk":
		c.QueueActiveChunk = atoi(val, c.QueueActiveChunk)
	case "queue_idle_chunk":
		c.QueueIdleChunk = atoi(val, c.QueueIdleChunk)
	case "tick_interval_ms":
		c.TickIntervalMS = atoi(val, c.TickIntervalMS)
	case "function_recursion_limit":
		c.FunctionRecursionLimit = atoi(val, c.FunctionRecursionLimit)
	case "function_invocation_limit":
		c.FunctionInvocationLimit = atoi(val, c.FunctionInvocationLimit)
	case "function_cpu_limit":
		c.FunctionCPULimit = atoi(val, c.FunctionCPULimit)
	case "trace_output_limit":
		c.TraceOutputLimit = atoi(val, c.TraceOutputLimit)
	case "trace_topdown":
		c.TraceTopdown = parseBool(val)
	case "space_compress":
		c.SpaceCompress = parseBool(val)
	case "ansi_colors":
		c.AnsiColors = parseBool(val)
	case "c_cmd_subst":
		c.CCmdSubst = parseBool(val)
	case "output_limit":
		c.OutputLimit = atoi(val, c.OutputLimit)
	case "god_dbref":
		c.GodDBRef = atoi(val, c.GodDBRef)
	case "starting_money":
		c.StartingMoney = atoi(val, c.StartingMoney)
	case "metrics_addr":
		c.MetricsAddr = val
	case "bolt_path":
		c.BoltPath = val
	default:
		// Unknown directives are ignored so stock netmush.conf files load.
	}
}

// Validate rejects values the scheduler and evaluator cannot run with.
func (c *Conf) Validate() error {
	switch {
	case c.QueueMaxSize < 1:
		return fmt.Errorf("queue_max_size must be positive, got %d", c.QueueMaxSize)
	case c.WaitCost < 0:
		return fmt.Errorf("wait_cost must not be negative, got %d", c.WaitCost)
	case c.OutputLimit < 64:
		return fmt.Errorf("output_limit must be at least 64, got %d", c.OutputLimit)
	case c.TickIntervalMS < 1:
		return fmt.Errorf("tick_interval_ms must be positive, got %d", c.TickIntervalMS)
	}
	return nil
}

// God returns the configured God dbref.
func (c *Conf) God() gamedb.DBRef {
	return gamedb.DBRef(c.GodDBRef)
}

// Tick returns the dispatch interval.
func (c *Conf) Tick() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// QueueConfig derives the scheduler limits. Clock and Rand keep the
// scheduler defaults.
func (c *Conf) QueueConfig() queue.Config {
	qc := queue.DefaultConfig()
	qc.MaxHandles = c.QueueMaxSize
	qc.WaitCost = c.WaitCost
	qc.MachineCost = c.MachineCommandCost
	return qc
}

// EvalLimits derives the per-command evaluator ceilings.
func (c *Conf) EvalLimits() eval.Limits {
	return eval.Limits{
		NestLim:      c.FunctionRecursionLimit,
		InvkLim:      c.FunctionInvocationLimit,
		CPULim:       time.Duration(c.FunctionCPULimit) * time.Second,
		TraceLimit:   c.TraceOutputLimit,
		TraceTopDown: c.TraceTopdown,
	}
}

// WatchConf reloads path whenever it is written and hands the result to
// apply. A file that fails to load is logged and skipped. It blocks until
// ctx is done.
func WatchConf(ctx context.Context, path string, apply func(*Conf)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("conf: watch %s: %w", path, err)
	}
	defer watcher.Close()

	// Editors replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("conf: watch %s: %w", path, err)
	}
	name := filepath.Base(path)
	log.Printf("CONF: watching %s for changes", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Base(ev.Name) != name {
				continue
			}
			c, err := LoadConf(path)
			if err != nil {
				log.Printf("CONF: reload failed, keeping current settings: %v", err)
				continue
			}
			log.Printf("CONF: %s changed, reloading", path)
			apply(c)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("CONF: watcher error: %v", err)
		}
	}
}

// splitKeyVal splits a line on the first space or tab.
func splitKeyVal(line string) (string, string) {
	for i := 0; i < len(line); i++ {
		if line[i] == ' ' || line[i] == '\t' {
			return line[:i], strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}

func atoi(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "true" || s == "1" || s == "on"
}
