// Package config holds the command line options and their validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stackvity/fsaccess/internal/request"
	"github.com/stackvity/fsaccess/internal/template"
)

// Backend choices. BackendAuto uses the inbox host when an inbox is
// configured and the disk host otherwise.
const (
	BackendAuto   = "auto"
	BackendModern = "modern"
	BackendLegacy = "legacy"
)

// Storage choices for the disk host. The inbox host always needs StorageOS.
const (
	StorageOS          = "os"
	StorageMemory      = "memory"
	StorageBillyOS     = "billy-os"
	StorageBillyMemory = "billy-memory"
)

var (
	validBackends = []string{BackendAuto, BackendModern, BackendLegacy}
	validStorages = []string{StorageOS, StorageMemory, StorageBillyOS, StorageBillyMemory}
)

// Options holds all the configuration settings for the fsaccess command.
// Tags are used by Viper for unmarshalling from config files, env vars, and flags.
type Options struct {
	Backend string `mapstructure:"backend"`

	// Disk host
	Root     string `mapstructure:"root"`
	Storage  string `mapstructure:"storage"`
	ReadOnly bool   `mapstructure:"readOnly"`

	// Inbox host
	Inbox        string        `mapstructure:"inbox"`
	Downloads    string        `mapstructure:"downloads"`
	SettleDelay  time.Duration `mapstructure:"settleDelay"`
	NativeCancel bool          `mapstructure:"nativeCancel"`
	RevokeDelay  time.Duration `mapstructure:"revokeDelay"`

	// Operations
	ThrowIfExistingHandleNotGood bool              `mapstructure:"throwIfExistingHandleNotGood"`
	Skip                         []string          `mapstructure:"skip"`
	TypeOverrides                map[string]string `mapstructure:"typeOverrides"`
	Concurrency                  int               `mapstructure:"concurrency"`

	// Output
	Format       string `mapstructure:"format"`
	TemplateFile string `mapstructure:"templateFile"`
	Verbose      bool   `mapstructure:"verbose"`

	ConfigFile string `mapstructure:"config"`
}

// EnvPrefix prefixes environment variables, as in FSACCESS_ROOT.
const EnvPrefix = "FSACCESS"

// NewViper returns a viper instance with defaults and environment binding.
// Keys are split on "::" so extension keys such as ".md" stay whole.
func NewViper() *viper.Viper {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendAuto)
	v.SetDefault("root", ".")
	v.SetDefault("storage", StorageOS)
	v.SetDefault("settleDelay", 300*time.Millisecond)
	v.SetDefault("revokeDelay", 30*time.Second)
	v.SetDefault("format", template.FormatText)
	v.SetDefault("concurrency", 0)
}

// Load unmarshals v into Options.
func Load(v *viper.Viper) (*Options, error) {
	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return &opts, nil
}

// UsesInbox reports whether the handle-less inbox host serves operations.
func (opts *Options) UsesInbox() bool {
	switch opts.Backend {
	case BackendLegacy:
		return true
	case BackendAuto:
		return strings.TrimSpace(opts.Inbox) != ""
	default:
		return false
	}
}

// ValidateConfig checks the loaded configuration options for validity.
func (opts *Options) ValidateConfig() error {
	var errs []string

	if !slices.Contains(validBackends, opts.Backend) {
		errs = append(errs, fmt.Sprintf("backend must be one of %s", strings.Join(validBackends, ", ")))
	}
	if !slices.Contains(validStorages, opts.Storage) {
		errs = append(errs, fmt.Sprintf("storage must be one of %s", strings.Join(validStorages, ", ")))
	}

	if opts.UsesInbox() {
		if strings.TrimSpace(opts.Inbox) == "" {
			errs = append(errs, "inbox path cannot be empty for the legacy backend")
		}
		if strings.TrimSpace(opts.Downloads) == "" {
			errs = append(errs, "downloads path cannot be empty for the legacy backend")
		}
		if opts.Storage != StorageOS {
			errs = append(errs, fmt.Sprintf("the legacy backend watches the inbox on disk and needs storage '%s'", StorageOS))
		}
	} else {
		if strings.TrimSpace(opts.Root) == "" {
			errs = append(errs, "root path cannot be empty")
		} else if opts.Storage == StorageOS || opts.Storage == StorageBillyOS {
			info, err := os.Stat(opts.Root)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					errs = append(errs, fmt.Sprintf("root path '%s' does not exist", opts.Root))
				} else {
					errs = append(errs, fmt.Sprintf("cannot access root path '%s': %v", opts.Root, err))
				}
			} else if !info.IsDir() {
				errs = append(errs, fmt.Sprintf("root path '%s' is not a directory", opts.Root))
			}
		}
	}

	if opts.SettleDelay < 0 {
		errs = append(errs, "settleDelay must be non-negative")
	}
	if opts.RevokeDelay < 0 {
		errs = append(errs, "revokeDelay must be non-negative")
	}
	if opts.Concurrency < 0 {
		errs = append(errs, "concurrency must be non-negative (0 for unbounded)")
	}

	if _, err := request.SkipGlobs(opts.Skip...); err != nil {
		errs = append(errs, err.Error())
	}
	for ext, typ := range opts.TypeOverrides {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Sprintf("typeOverrides key '%s' must start with a dot", ext))
		}
		if !strings.Contains(typ, "/") {
			errs = append(errs, fmt.Sprintf("typeOverrides value '%s' for '%s' is not a media type", typ, ext))
		}
	}

	if !slices.Contains(template.Formats, opts.Format) {
		errs = append(errs, fmt.Sprintf("format must be one of %s", strings.Join(template.Formats, ", ")))
	}
	if opts.TemplateFile != "" {
		info, err := os.Stat(opts.TemplateFile)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Sprintf("templateFile '%s' does not exist", opts.TemplateFile))
			} else {
				errs = append(errs, fmt.Sprintf("cannot access templateFile '%s': %v", opts.TemplateFile, err))
			}
		} else if info.IsDir() {
			errs = append(errs, fmt.Sprintf("templateFile '%s' is a directory, not a file", opts.TemplateFile))
		}
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
