package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

// StoreConfig configures the CacheStore's durable SQLite file (spec §4.5).
// None of these affect layoutVersion: they are operational, not geometry.
//
// PathTemplate is itself a template, but not one gencfg expands: it
// references {{.Title}}/{{.ContentHash}}, fields gencfg's own Values type
// doesn't carry, so it is excluded from the load-time expansion pass (see
// StorePathTemplateFieldName below) and rendered later by ExpandStorePath
// once a book is open.
type StoreConfig struct {
	PathTemplate       string `yaml:"path_template" validate:"required"`
	BusyTimeoutSeconds int    `yaml:"busy_timeout_seconds,omitempty" validate:"omitempty,min=1"`
}

// StorePathTemplateFieldName names the one field LoadConfiguration must not
// feed through gencfg's own template expansion.
const StorePathTemplateFieldName = "Store.PathTemplate"

var requiredOptions = []func(*gencfg.ProcessingOptions){
	gencfg.WithDoNotExpandField(StorePathTemplateFieldName),
}

// ExpandStorePath renders a StoreConfig.PathTemplate for a specific book,
// with sprig's string helpers (`lower`, `trunc`, ...) available the same
// way the teacher's convert/templates.go exposes them for its own output
// name templates.
func ExpandStorePath(tmplText, title, contentHash string) (string, error) {
	t, err := template.New("store-path").Funcs(sprig.FuncMap()).Parse(tmplText)
	if err != nil {
		return "", fmt.Errorf("invalid store path template: %w", err)
	}
	var buf strings.Builder
	if err := t.Execute(&buf, struct {
		Title       string
		ContentHash string
	}{Title: title, ContentHash: contentHash}); err != nil {
		return "", fmt.Errorf("unable to render store path template: %w", err)
	}
	return buf.String(), nil
}

// WorkerConfig overrides BackgroundWorker's scheduling tunables away from
// their Metrics defaults (spec §4.6, §12).
type WorkerConfig struct {
	BatchSize         int `yaml:"batch_size,omitempty" validate:"omitempty,min=1"`
	PriorityBatchSize int `yaml:"priority_batch_size,omitempty" validate:"omitempty,min=1"`
	BatchYieldMillis  int `yaml:"batch_yield_millis,omitempty" validate:"omitempty,min=0"`
}

// Config is the engine's top-level configuration document.
type Config struct {
	Version   int            `yaml:"version" validate:"eq=1"`
	Store     StoreConfig    `yaml:"store"`
	Worker    WorkerConfig   `yaml:"worker"`
	Logging   LoggingConfig  `yaml:"logging"`
	Reporting ReporterConfig `yaml:"reporting"`
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	opts := append(append([]func(*gencfg.ProcessingOptions){}, requiredOptions...), options...)
	data, err := gencfg.Process(ConfigTmpl, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
