package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTempFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validOptions(root string) Options {
	return Options{
		Backend:     BackendAuto,
		Root:        root,
		Storage:     StorageOS,
		SettleDelay: 300 * time.Millisecond,
		RevokeDelay: 30 * time.Second,
		Format:      "text",
	}
}

func TestValidateConfig(t *testing.T) {
	dir := t.TempDir()
	tmpl := createTempFile(t, dir, "out.tmpl", "{{ .Operation }}")
	notADir := createTempFile(t, dir, "file", "")

	testCases := []struct {
		name        string
		mutate      func(o *Options)
		errorSubstr string
	}{
		{name: "Valid Disk Config", mutate: func(o *Options) {}},
		{name: "Valid Inbox Config", mutate: func(o *Options) {
			o.Backend = BackendLegacy
			o.Root = ""
			o.Inbox = filepath.Join(dir, "inbox")
			o.Downloads = filepath.Join(dir, "downloads")
		}},
		{name: "Valid Memory Root Need Not Exist", mutate: func(o *Options) {
			o.Storage = StorageMemory
			o.Root = "/nowhere"
		}},
		{name: "Valid Template And Overrides", mutate: func(o *Options) {
			o.TemplateFile = tmpl
			o.TypeOverrides = map[string]string{".md": "text/markdown"}
			o.Skip = []string{"node_modules", ".*"}
		}},
		{name: "Unknown Backend", mutate: func(o *Options) { o.Backend = "native" }, errorSubstr: "backend must be one of auto, modern, legacy"},
		{name: "Unknown Storage", mutate: func(o *Options) { o.Storage = "s3" }, errorSubstr: "storage must be one of"},
		{name: "Missing Root", mutate: func(o *Options) { o.Root = " " }, errorSubstr: "root path cannot be empty"},
		{name: "Root Does Not Exist", mutate: func(o *Options) { o.Root = filepath.Join(dir, "missing") }, errorSubstr: "does not exist"},
		{name: "Root Is A File", mutate: func(o *Options) { o.Root = notADir }, errorSubstr: "is not a directory"},
		{name: "Legacy Needs Inbox", mutate: func(o *Options) {
			o.Backend = BackendLegacy
			o.Downloads = dir
		}, errorSubstr: "inbox path cannot be empty"},
		{name: "Legacy Needs Downloads", mutate: func(o *Options) {
			o.Backend = BackendLegacy
			o.Inbox = dir
		}, errorSubstr: "downloads path cannot be empty"},
		{name: "Inbox Needs OS Storage", mutate: func(o *Options) {
			o.Inbox = dir
			o.Downloads = dir
			o.Storage = StorageBillyMemory
		}, errorSubstr: "needs storage 'os'"},
		{name: "Negative Settle Delay", mutate: func(o *Options) { o.SettleDelay = -time.Second }, errorSubstr: "settleDelay must be non-negative"},
		{name: "Negative Revoke Delay", mutate: func(o *Options) { o.RevokeDelay = -time.Second }, errorSubstr: "revokeDelay must be non-negative"},
		{name: "Negative Concurrency", mutate: func(o *Options) { o.Concurrency = -1 }, errorSubstr: "concurrency must be non-negative"},
		{name: "Invalid Skip Pattern", mutate: func(o *Options) { o.Skip = []string{"[abc"} }, errorSubstr: "invalid skip pattern '[abc'"},
		{name: "Override Without Dot", mutate: func(o *Options) { o.TypeOverrides = map[string]string{"md": "text/markdown"} }, errorSubstr: "must start with a dot"},
		{name: "Override Not A Media Type", mutate: func(o *Options) { o.TypeOverrides = map[string]string{".md": "markdown"} }, errorSubstr: "is not a media type"},
		{name: "Unknown Format", mutate: func(o *Options) { o.Format = "xml" }, errorSubstr: "format must be one of text, yaml, toml, json"},
		{name: "Template Missing", mutate: func(o *Options) { o.TemplateFile = filepath.Join(dir, "nope.tmpl") }, errorSubstr: "templateFile"},
		{name: "Template Is Directory", mutate: func(o *Options) { o.TemplateFile = dir }, errorSubstr: "is a directory, not a file"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := validOptions(dir)
			tc.mutate(&opts)
			err := opts.ValidateConfig()
			if tc.errorSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tc.errorSubstr)
		})
	}
}

func TestValidateConfig_AggregatesErrors(t *testing.T) {
	opts := Options{Backend: "x", Storage: "y", Format: "z", Concurrency: -1}
	err := opts.ValidateConfig()
	require.Error(t, err)
	assert.GreaterOrEqual(t, strings.Count(err.Error(), ";"), 3)
}

func TestUsesInbox(t *testing.T) {
	assert.True(t, (&Options{Backend: BackendLegacy}).UsesInbox())
	assert.False(t, (&Options{Backend: BackendModern, Inbox: "/in"}).UsesInbox())
	assert.True(t, (&Options{Backend: BackendAuto, Inbox: "/in"}).UsesInbox())
	assert.False(t, (&Options{Backend: BackendAuto}).UsesInbox())
}

// TestConfigLoadingPrecedence verifies that flags override env vars, which
// override config files, which override defaults.
func TestConfigLoadingPrecedence(t *testing.T) {
	dir := t.TempDir()
	yamlFile := createTempFile(t, dir, "fsaccess.yaml", "concurrency: 8\nnativeCancel: false\nsettleDelay: 1s\nskip: [node_modules]\n")
	tomlFile := createTempFile(t, dir, "fsaccess.toml", "concurrency = 6\nformat = \"toml\"\n[typeOverrides]\n\".md\" = \"text/markdown\"\n")

	tests := []struct {
		name         string
		setupFunc    func(v *viper.Viper)
		expectedConc int
		expectedNC   bool
		check        func(t *testing.T, opts *Options)
	}{
		{
			name:         "Default Only",
			setupFunc:    func(v *viper.Viper) {},
			expectedConc: 0,
			check: func(t *testing.T, opts *Options) {
				assert.Equal(t, BackendAuto, opts.Backend)
				assert.Equal(t, 300*time.Millisecond, opts.SettleDelay)
				assert.Equal(t, 30*time.Second, opts.RevokeDelay)
				assert.Equal(t, "text", opts.Format)
			},
		},
		{
			name: "YAML File Overrides Default",
			setupFunc: func(v *viper.Viper) {
				v.SetConfigFile(yamlFile)
				require.NoError(t, v.ReadInConfig())
			},
			expectedConc: 8,
			check: func(t *testing.T, opts *Options) {
				assert.Equal(t, time.Second, opts.SettleDelay)
				assert.Equal(t, []string{"node_modules"}, opts.Skip)
			},
		},
		{
			name: "TOML File",
			setupFunc: func(v *viper.Viper) {
				v.SetConfigFile(tomlFile)
				require.NoError(t, v.ReadInConfig())
			},
			expectedConc: 6,
			check: func(t *testing.T, opts *Options) {
				assert.Equal(t, "toml", opts.Format)
				assert.Equal(t, "text/markdown", opts.TypeOverrides[".md"])
			},
		},
		{
			name: "Env Overrides File",
			setupFunc: func(v *viper.Viper) {
				v.SetConfigFile(yamlFile)
				require.NoError(t, v.ReadInConfig())
				t.Setenv("FSACCESS_CONCURRENCY", "12")
				t.Setenv("FSACCESS_NATIVECANCEL", "true")
			},
			expectedConc: 12,
			expectedNC:   true,
		},
		{
			name: "Flag Overrides Env",
			setupFunc: func(v *viper.Viper) {
				v.SetConfigFile(yamlFile)
				require.NoError(t, v.ReadInConfig())
				t.Setenv("FSACCESS_CONCURRENCY", "12")
				v.Set("concurrency", 16)
				v.Set("nativeCancel", true)
			},
			expectedConc: 16,
			expectedNC:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViper()
			tt.setupFunc(v)

			opts, err := Load(v)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedConc, opts.Concurrency, "Concurrency value mismatch")
			assert.Equal(t, tt.expectedNC, opts.NativeCancel, "NativeCancel value mismatch")
			if tt.check != nil {
				tt.check(t, opts)
			}
		})
	}
}
