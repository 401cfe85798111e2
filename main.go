package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stackvity/fsaccess/internal/capability"
	"github.com/stackvity/fsaccess/internal/config"
	"github.com/stackvity/fsaccess/internal/fileref"
	"github.com/stackvity/fsaccess/internal/filesystem"
	"github.com/stackvity/fsaccess/internal/fsaccess"
	"github.com/stackvity/fsaccess/internal/fserrors"
	"github.com/stackvity/fsaccess/internal/handle"
	"github.com/stackvity/fsaccess/internal/host/diskhost"
	"github.com/stackvity/fsaccess/internal/host/inbox"
	"github.com/stackvity/fsaccess/internal/payload"
	"github.com/stackvity/fsaccess/internal/request"
	"github.com/stackvity/fsaccess/internal/template"
	"github.com/stackvity/fsaccess/internal/worker"
)

// Variables for version embedding via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	ExitCodeSuccess        = 0
	ExitCodeOperationError = 1
	ExitCodeConfigError    = 2
	ExitCodeInterrupt      = 3
	ExitCodeAborted        = 4
	ExitCodeUnknown        = 10
)

var (
	v      = config.NewViper()
	opts   = &config.Options{}
	logger = slog.New(slog.DiscardHandler)
	sess   *session
)

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"backend":        "backend",
	"root":           "root",
	"storage":        "storage",
	"read-only":      "readOnly",
	"inbox":          "inbox",
	"downloads":      "downloads",
	"settle-delay":   "settleDelay",
	"native-cancel":  "nativeCancel",
	"revoke-delay":   "revokeDelay",
	"throw-if-stale": "throwIfExistingHandleNotGood",
	"skip":           "skip",
	"type":           "typeOverrides",
	"concurrency":    "concurrency",
	"format":         "format",
	"template":       "templateFile",
	"verbose":        "verbose",
}

// configError marks failures that happen before any picker is shown.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// operationError marks failures returned by a file access operation.
type operationError struct{ err error }

func (e *operationError) Error() string { return e.err.Error() }
func (e *operationError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:   "fsaccess",
	Short: "Open and save files through a native picker or a handle-less fallback",
	Long: `fsaccess opens files, saves data and lists directories through whichever
file access primitives the host offers.

The disk host is handle based: pickers are answered on the terminal and saves
can be repeated in place. The inbox host has no handles: files are selected
by dropping them into an inbox directory and saves become downloads.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v)
		if err != nil {
			return &configError{err}
		}
		opts = loaded
		if err := opts.ValidateConfig(); err != nil {
			return &configError{err}
		}

		logLevel := slog.LevelInfo
		if opts.Verbose {
			logLevel = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
		logger.Debug("Configuration loaded and validated successfully", "options", *opts)

		sess, err = newSession(opts, logger, cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return &configError{err}
		}
		return nil
	},
}

// session is the host and broker built from the configuration.
type session struct {
	access *fsaccess.Access
	disk   *diskhost.Host
	inbox  *inbox.Host
	exec   *template.Executor
	skip   func(request.Entry) bool
	stdin  io.Reader
	// chooser answers the disk host's pickers, from stdin unless preset.
	chooser *diskhost.PresetChooser
}

func newSession(opts *config.Options, logger *slog.Logger, stdin io.Reader, stderr io.Writer) (*session, error) {
	s := &session{stdin: stdin}

	var global any
	if opts.UsesInbox() {
		h, err := inbox.New(filesystem.NewRealFileSystem(), logger, inbox.Config{
			Inbox:         opts.Inbox,
			Downloads:     opts.Downloads,
			SettleDelay:   opts.SettleDelay,
			NativeCancel:  opts.NativeCancel,
			Concurrency:   opts.Concurrency,
			TypeOverrides: opts.TypeOverrides,
		})
		if err != nil {
			return nil, err
		}
		s.inbox, global = h, h
	} else {
		fsys, root, err := diskStorage(opts)
		if err != nil {
			return nil, err
		}
		s.chooser = &diskhost.PresetChooser{Next: diskhost.NewPromptChooser(stdin, stderr)}
		s.disk = diskhost.New(fsys, s.chooser, logger, diskhost.Config{
			Root:          root,
			ReadOnly:      opts.ReadOnly,
			TypeOverrides: opts.TypeOverrides,
			Concurrency:   opts.Concurrency,
		})
		global = s.disk
	}
	capability.Install(global)

	access, err := fsaccess.New(global,
		fsaccess.WithLogger(logger),
		fsaccess.WithRevokeDelay(opts.RevokeDelay),
	)
	if err != nil {
		return nil, err
	}
	s.access = access

	if s.skip, err = request.SkipGlobs(opts.Skip...); err != nil {
		return nil, err
	}
	if s.exec, err = template.NewExecutor(opts.TemplateFile, filesystem.NewRealFileSystem()); err != nil {
		return nil, err
	}
	logger.Debug("Session ready", "backend", access.Backend())
	return s, nil
}

// diskStorage picks the FileSystem behind the disk host and the root inside it.
func diskStorage(opts *config.Options) (filesystem.FileSystem, string, error) {
	switch opts.Storage {
	case config.StorageOS:
		abs, err := filepath.Abs(opts.Root)
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve root '%s': %w", opts.Root, err)
		}
		return filesystem.NewRealFileSystem(), filepath.ToSlash(abs), nil
	case config.StorageMemory:
		return filesystem.NewMemFileSystem(), path.Clean("/" + filepath.ToSlash(opts.Root)), nil
	case config.StorageBillyOS:
		return filesystem.NewBillyOSFileSystem(opts.Root), "/", nil
	case config.StorageBillyMemory:
		return filesystem.NewBillyMemFileSystem(), "/", nil
	default:
		return nil, "", fmt.Errorf("unknown storage '%s'", opts.Storage)
	}
}

// stdinPayload streams stdin as the content to save. The disk host answers its
// pickers from stdin too, so the save target must come from to, or from an
// in-place handle that is never allowed to fall back to a picker.
func (s *session) stdinPayload(typ, to, inPlace string, throwIfStale bool) (payload.Payload, error) {
	if s.disk != nil {
		if to == "" && (inPlace == "" || !throwIfStale) {
			return payload.Payload{}, errors.New("save - reads the content from stdin; name the target with --to, or use --in-place with --throw-if-stale")
		}
		s.chooser.SetSave(to)
	}
	return payload.Stream(s.stdin, typ), nil
}

// forwardInteractions lets a line on stdin count as the user returning to
// the page while the inbox waits.
func (s *session) forwardInteractions(ctx context.Context) {
	if s.inbox == nil {
		return
	}
	go func() {
		if err := s.inbox.ForwardInteractions(ctx, s.stdin); err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("Stopped forwarding interactions", "error", err)
		}
	}()
}

func (s *session) render(w io.Writer, operation, directory string, files []*fileref.File) error {
	return template.Render(w, opts.Format, s.exec, template.Result{
		Operation: operation,
		Backend:   s.access.Backend().String(),
		Directory: directory,
		Files:     template.Records(files),
	})
}

var wellKnown = []string{
	handle.StartInDesktop, handle.StartInDocuments, handle.StartInDownloads,
	handle.StartInMusic, handle.StartInPictures, handle.StartInVideos,
}

func parseStartIn(s string) (handle.StartIn, error) {
	if s == "" {
		return handle.StartIn{}, nil
	}
	if !slices.Contains(wellKnown, s) {
		return handle.StartIn{}, &configError{fmt.Errorf("start-in must be one of %s", strings.Join(wellKnown, ", "))}
	}
	return handle.StartIn{WellKnown: s}, nil
}

// pickerFlags are shared by every command that shows a picker.
type pickerFlags struct {
	startIn string
	id      string
}

func (p *pickerFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&p.startIn, "start-in", "", "Well-known directory the picker opens in")
	fs.StringVar(&p.id, "id", "", "Remember the picker's last directory under this id")
}

// filterFlags describe one accept group.
type filterFlags struct {
	description      string
	mimeTypes        []string
	extensions       []string
	excludeAcceptAll bool
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.description, "description", "", "Description of the accepted files")
	fs.StringSliceVar(&f.mimeTypes, "mime", nil, "Accepted media types (can be repeated)")
	fs.StringSliceVar(&f.extensions, "ext", nil, "Accepted extensions including the dot (can be repeated)")
	fs.BoolVar(&f.excludeAcceptAll, "exclude-accept-all", false, "Hide the picker's all-files option")
}

var (
	openPicker  pickerFlags
	openFilter  filterFlags
	openMulti   bool
	savePicker  pickerFlags
	saveFilter  filterFlags
	saveName    string
	saveType    string
	saveURL     string
	saveInPlace string
	saveTo      string
	dirPicker   pickerFlags
	dirRecurse  bool
	dirMode     string
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Pick one or more files and print what was selected",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		startIn, err := parseStartIn(openPicker.startIn)
		if err != nil {
			return err
		}
		group := request.Open{
			Description:            openFilter.description,
			MIMETypes:              openFilter.mimeTypes,
			Extensions:             openFilter.extensions,
			StartIn:                startIn,
			ID:                     openPicker.id,
			ExcludeAcceptAllOption: openFilter.excludeAcceptAll,
		}

		ctx := cmd.Context()
		sess.forwardInteractions(ctx)
		var files []*fileref.File
		if openMulti {
			files, err = sess.access.OpenFiles(ctx, group)
		} else {
			var f *fileref.File
			if f, err = sess.access.OpenFile(ctx, group); err == nil {
				files = []*fileref.File{f}
			}
		}
		if err != nil {
			return &operationError{err}
		}
		return sess.render(cmd.OutOrStdout(), "open", "", files)
	},
}

var saveCmd = &cobra.Command{
	Use:   "save [file|-]",
	Short: "Save a file, stdin or a URL through the save picker",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 1) == (saveURL != "") {
			return &configError{errors.New("save needs exactly one source: a file argument, '-' or --url")}
		}
		startIn, err := parseStartIn(savePicker.startIn)
		if err != nil {
			return err
		}

		var (
			p    payload.Payload
			name string
		)
		switch {
		case saveURL != "":
			u, err := url.Parse(saveURL)
			if err != nil {
				return &configError{fmt.Errorf("invalid url '%s': %w", saveURL, err)}
			}
			p, name = urlPayload(saveURL), path.Base(u.Path)
			if name == "/" || name == "." {
				name = ""
			}
		case args[0] == "-":
			if p, err = sess.stdinPayload(saveType, saveTo, saveInPlace, opts.ThrowIfExistingHandleNotGood); err != nil {
				return &configError{err}
			}
		default:
			f, err := os.Open(args[0])
			if err != nil {
				return &configError{fmt.Errorf("failed to open source '%s': %w", args[0], err)}
			}
			defer f.Close()
			typ := saveType
			if typ == "" {
				typ = worker.DetectType(args[0], nil, opts.TypeOverrides)
			}
			p, name = payload.Stream(f, typ), filepath.Base(args[0])
		}
		if saveName != "" {
			name = saveName
		}

		if saveTo != "" {
			if sess.disk == nil {
				return &configError{errors.New("--to needs the disk host")}
			}
			sess.chooser.SetSave(saveTo)
		}

		var existing handle.FileHandle
		if saveInPlace != "" {
			if sess.disk == nil {
				return &configError{errors.New("--in-place needs the disk host")}
			}
			existing = sess.disk.FileHandle(saveInPlace)
		}

		req := request.Save{
			FileName:                     name,
			Description:                  saveFilter.description,
			MIMETypes:                    saveFilter.mimeTypes,
			Extensions:                   saveFilter.extensions,
			StartIn:                      startIn,
			ID:                           savePicker.id,
			ExcludeAcceptAllOption:       saveFilter.excludeAcceptAll,
			ThrowIfExistingHandleNotGood: opts.ThrowIfExistingHandleNotGood,
		}
		ctx := cmd.Context()
		h, err := sess.access.Save(ctx, p, req, existing)
		if err != nil {
			return &operationError{err}
		}

		var files []*fileref.File
		if h != nil {
			f, err := h.GetFile(ctx)
			if err != nil {
				return &operationError{fmt.Errorf("saved but could not read back '%s': %w", h.Name(), err)}
			}
			files = append(files, fileref.New(f, h))
		} else if sess.inbox != nil {
			logger.Info("Saved as download", "paths", sess.inbox.Downloads())
		}
		return sess.render(cmd.OutOrStdout(), "save", "", files)
	},
}

// urlPayload defers the request until the save resolves its payload.
func urlPayload(rawURL string) payload.Payload {
	return payload.Pending(func(ctx context.Context) (payload.Payload, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return payload.Payload{}, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return payload.Payload{}, fmt.Errorf("failed to fetch '%s': %w", rawURL, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return payload.Payload{}, fmt.Errorf("failed to fetch '%s': %s", rawURL, resp.Status)
		}
		return payload.Response(resp), nil
	})
}

func directoryRequest() (request.Directory, error) {
	startIn, err := parseStartIn(dirPicker.startIn)
	if err != nil {
		return request.Directory{}, err
	}
	mode := handle.Mode(dirMode)
	if mode != handle.ModeRead && mode != handle.ModeReadWrite {
		return request.Directory{}, &configError{fmt.Errorf("mode must be '%s' or '%s'", handle.ModeRead, handle.ModeReadWrite)}
	}
	return request.Directory{
		Recursive:     dirRecurse,
		StartIn:       startIn,
		ID:            dirPicker.id,
		Mode:          mode,
		SkipDirectory: sess.skip,
	}, nil
}

var openDirCmd = &cobra.Command{
	Use:   "open-dir",
	Short: "Pick a directory and list the files below it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := directoryRequest()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		sess.forwardInteractions(ctx)
		files, err := sess.access.OpenDirectory(ctx, req)
		if err != nil {
			return &operationError{err}
		}
		return sess.render(cmd.OutOrStdout(), "open-dir", "", files)
	},
}

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy",
	Short: "Pick a directory and print its handle with the files below it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := directoryRequest()
		if err != nil {
			return err
		}
		h, err := sess.access.OpenHierarchy(cmd.Context(), req)
		if err != nil {
			return &operationError{err}
		}
		return sess.render(cmd.OutOrStdout(), "hierarchy", h.Directory.Name(), h.Files)
	},
}

var supportedCmd = &cobra.Command{
	Use:   "supported",
	Short: "Report whether the configured host offers handle based access",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "backend: %s\nsupported: %t\n", sess.access.Backend(), capability.Supported())
		return err
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file path (default: .fsaccess.yaml, fsaccess.toml)")
	pf.String("backend", config.BackendAuto, "Host to use: auto, modern (disk) or legacy (inbox)")
	pf.StringP("root", "r", ".", "Directory the disk host's pickers are confined to")
	pf.String("storage", config.StorageOS, "Disk host storage: os, memory, billy-os or billy-memory")
	pf.Bool("read-only", false, "Deny write access on the disk host")
	pf.String("inbox", "", "Directory watched for selections by the inbox host")
	pf.String("downloads", "", "Directory the inbox host saves downloads to")
	pf.Duration("settle-delay", inbox.DefaultSettleDelay, "Quiet time before an inbox selection is read")
	pf.Bool("native-cancel", false, "Treat a .cancel file in the inbox as dismissing the picker")
	pf.Duration("revoke-delay", 0, "How long download URLs stay valid (0 for the default)")
	pf.Bool("throw-if-stale", false, "Fail instead of showing a picker when --in-place points at a missing file")
	pf.StringSlice("skip", nil, "Glob patterns for directory names to skip (can be repeated)")
	pf.StringToString("type", nil, "Media type overrides by extension, e.g. .md=text/markdown")
	pf.Int("concurrency", 0, "Parallel reads (0 for unbounded)")
	pf.StringP("format", "f", template.FormatText, "Output format: text, yaml, toml or json")
	pf.String("template", "", "Path to a Go template used for output instead of --format")
	pf.BoolP("verbose", "v", false, "Enable verbose debug logging")

	rootCmd.SetVersionTemplate(fmt.Sprintf("fsaccess version %s (commit: %s, built: %s)\n", version, commit, date))
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return &configError{err} })

	openPicker.register(openCmd.Flags())
	openFilter.register(openCmd.Flags())
	openCmd.Flags().BoolVarP(&openMulti, "multiple", "m", false, "Allow selecting several files")

	savePicker.register(saveCmd.Flags())
	saveFilter.register(saveCmd.Flags())
	saveCmd.Flags().StringVarP(&saveName, "name", "n", "", "Suggested file name (default: the source's name)")
	saveCmd.Flags().StringVar(&saveType, "type-of", "", "Media type of the content")
	saveCmd.Flags().StringVar(&saveURL, "url", "", "Fetch the content from this URL")
	saveCmd.Flags().StringVar(&saveInPlace, "in-place", "", "Write to this path below the root without a picker")
	saveCmd.Flags().StringVar(&saveTo, "to", "", "Answer the save picker with this path below the root (required for '-' on the disk host)")

	for _, cmd := range []*cobra.Command{openDirCmd, hierarchyCmd} {
		fs := cmd.Flags()
		dirPicker.register(fs)
		fs.BoolVarP(&dirRecurse, "recursive", "R", false, "Include files in subdirectories")
		fs.StringVar(&dirMode, "mode", string(handle.ModeRead), "Permission to request: read or readwrite")
	}

	rootCmd.AddCommand(openCmd, saveCmd, openDirCmd, hierarchyCmd, supportedCmd)
}

// initConfig reads in the config file, then binds flags above it.
func initConfig() {
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading specified config file %s: %v\n", opts.ConfigFile, err)
			os.Exit(ExitCodeConfigError)
		}
	} else {
		v.AddConfigPath(".")
		for _, name := range []string{".fsaccess", "fsaccess"} {
			v.SetConfigName(name)
			err := v.ReadInConfig()
			if err == nil {
				break
			}
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", v.ConfigFileUsed(), err)
				os.Exit(ExitCodeConfigError)
			}
		}
	}

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Internal error binding flag %s: %v\n", flag, err)
			os.Exit(ExitCodeConfigError)
		}
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(ctx context.Context, err error) int {
	var cfgErr *configError
	var opErr *operationError
	switch {
	case err == nil:
		return ExitCodeSuccess
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		return ExitCodeInterrupt
	case fserrors.IsAborted(err):
		return ExitCodeAborted
	case errors.As(err, &cfgErr):
		return ExitCodeConfigError
	case errors.As(err, &opErr):
		return ExitCodeOperationError
	default:
		return ExitCodeUnknown
	}
}

// Execute runs the root command with a signal-aware context and exits with
// the mapped status.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	code := exitCode(ctx, err)
	switch code {
	case ExitCodeSuccess:
	case ExitCodeInterrupt:
		logger.Info("Process interrupted.")
	case ExitCodeAborted:
		logger.Info("Selection dismissed.")
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	stop()
	os.Exit(code)
}

func main() {
	Execute()
}
