package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/zeebo/blake3"

	"github.com/brettbedarf/bootfs"
	"github.com/brettbedarf/bootfs/adapters"
	"github.com/brettbedarf/bootfs/config"
	"github.com/brettbedarf/bootfs/filesystem"
	"github.com/brettbedarf/bootfs/internal/util"
	"github.com/brettbedarf/bootfs/server"
)

const usage = `Usage: bootfs [flags] <command> [args]

Commands:
  mount <dir>     mount the remote tree read-only at dir
  get <path>      fetch a file to --output or stdout
  stat <path>     print the size of a remote file

Flags:
`

type cliOptions struct {
	configPath string
	server     string
	transport  string
	verbose    int
	umount     bool
	output     string
	maxHandles int
	timeout    float64

	flags *pflag.FlagSet
	args  []string
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	opts := &cliOptions{}
	flags := pflag.NewFlagSet("bootfs", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a yaml or json config file")
	flags.StringVarP(&opts.server, "server", "s", "", "Remote server; host[:port] for tftp, base URL for http")
	flags.StringVarP(&opts.transport, "transport", "t", config.DefaultTransport, "Transport to use (tftp or http)")
	flags.IntVarP(&opts.verbose, "verbose", "v", config.InfoVerbose,
		"Log verbosity level between 1 (error) and 5 (trace)")
	flags.BoolVarP(&opts.umount, "umount", "u", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
	flags.StringVarP(&opts.output, "output", "o", "", "Write fetched data to this file instead of stdout")
	flags.IntVar(&opts.maxHandles, "max-handles", config.DefaultMaxHandles, "Maximum number of open handles")
	flags.Float64Var(&opts.timeout, "timeout", config.DefaultTimeout, "Remote call timeout in seconds")
	flags.SortFlags = false

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	opts.flags = flags
	opts.args = flags.Args()
	return opts, nil
}

// loadConfig merges the config file, if any, with the flags set on the command line
func loadConfig(opts *cliOptions) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.NewConfigFromFile(opts.configPath); err != nil {
			return nil, fmt.Errorf("config %q: %w", opts.configPath, err)
		}
	}

	override := &config.ConfigOverride{}
	changed := opts.flags.Changed
	if changed("server") {
		override.Server = &opts.server
	}
	if changed("transport") {
		override.Transport = &opts.transport
	}
	if changed("verbose") {
		override.LogLvl = &opts.verbose
	}
	if changed("max-handles") {
		override.MaxHandles = &opts.maxHandles
	}
	if changed("timeout") {
		override.Timeout = &opts.timeout
	}
	cfg.Merge(override)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitPath turns a slash separated remote path into the segments opened one
// by one. Empty segments are dropped.
func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, string(bootfs.Separator)) {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// openPath opens every segment of p below the volume root. The returned
// handles are ordered root-ward last and must be closed by the caller.
func openPath(files bootfs.FileProtocol, p string) ([]bootfs.Handle, error) {
	var h bootfs.Handle
	if err := files.OpenVolume(&h); err != nil {
		return nil, err
	}
	segs := splitPath(p)
	if len(segs) == 0 {
		return nil, fmt.Errorf("empty path: %w", bootfs.ErrInvalidParameter)
	}

	handles := make([]bootfs.Handle, 0, len(segs))
	for _, seg := range segs {
		next, err := files.Open(h, seg, bootfs.ModeRead, 0)
		if err != nil {
			closeAll(files, handles)
			return nil, err
		}
		handles = append(handles, next)
		h = next
	}
	return handles, nil
}

func closeAll(files bootfs.FileProtocol, handles []bootfs.Handle) {
	for i := len(handles) - 1; i >= 0; i-- {
		_ = files.Close(handles[i])
	}
}

// statHandle queries the required info size and then reads it with an exact buffer
func statHandle(files bootfs.FileProtocol, h bootfs.Handle) (*filesystem.FileInfo, error) {
	size := 0
	err := files.GetInfo(h, bootfs.FileInfoID, &size, nil)
	if err != nil && !errors.Is(err, bootfs.ErrBufferTooSmall) {
		return nil, err
	}
	buf := make([]byte, size)
	if err := files.GetInfo(h, bootfs.FileInfoID, &size, buf); err != nil {
		return nil, err
	}
	return filesystem.UnmarshalFileInfo(buf)
}

func cmdStat(files bootfs.FileProtocol, p string, stdout io.Writer) error {
	handles, err := openPath(files, p)
	if err != nil {
		return err
	}
	defer closeAll(files, handles)

	info, err := statHandle(files, handles[len(handles)-1])
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\t%d\t%s\n", info.FileName, info.FileSize, humanize.IBytes(info.FileSize))
	return nil
}

// initialReadSize is the first buffer tried for files of unknown size
const initialReadSize = 64 << 10

// readSized reads a file whose size is known with a single exact buffer
func readSized(files bootfs.FileProtocol, h bootfs.Handle, size uint64) ([]byte, error) {
	logger := util.GetLogger("get")
	buf := make([]byte, size)
	n, err := files.Read(h, buf)
	if err != nil {
		return nil, err
	}
	if uint64(n) != size {
		logger.Warn().Int("read", n).Uint64("size", size).Msg("Short read")
	}
	return buf[:n], nil
}

// readUnsized doubles the buffer until a read comes back short. Every Read
// transfers from byte 0, so each attempt replaces the previous one.
func readUnsized(files bootfs.FileProtocol, h bootfs.Handle) ([]byte, error) {
	for size := initialReadSize; ; size *= 2 {
		buf := make([]byte, size)
		n, err := files.Read(h, buf)
		if err != nil {
			return nil, err
		}
		if n < size {
			return buf[:n], nil
		}
	}
}

func cmdGet(files bootfs.FileProtocol, p, output string, stdout, stderr io.Writer) error {
	logger := util.GetLogger("get")
	handles, err := openPath(files, p)
	if err != nil {
		return err
	}
	defer closeAll(files, handles)
	h := handles[len(handles)-1]

	info, err := statHandle(files, h)
	if err != nil {
		return err
	}
	var data []byte
	if info.FileSize == 0 {
		logger.Warn().Str("path", p).Msg("Server reported no size, reading until the file ends")
		data, err = readUnsized(files, h)
	} else {
		data, err = readSized(files, h, info.FileSize)
	}
	if err != nil {
		return err
	}
	n := len(data)

	if output == "" {
		if _, err := stdout.Write(data); err != nil {
			return err
		}
	} else if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}

	sum := blake3.Sum256(data)
	fmt.Fprintf(stderr, "%s  %s (%s)\n", hex.EncodeToString(sum[:]), p, humanize.IBytes(uint64(n)))
	return nil
}

func cmdMount(ctx context.Context, cfg *config.Config, files bootfs.FileProtocol, mnt string, umount bool) error {
	logger := util.GetLogger("main")

	// Try unmount if requested
	if umount { // send cli command
		cmd := exec.Command("fusermount", "-u", mnt)
		// we ignore error here if not already mounted
		cmd.Run() // nolint:errcheck
	}

	fs := server.New(cfg, files)
	if err := <-fs.ServeAsync(mnt); err != nil {
		return fmt.Errorf("mount %q: %w", mnt, err)
	}
	logger.Info().Str("mountpoint", mnt).Str("server", cfg.Server).Msg("Filesystem mounted successfully")

	unmounted := make(chan struct{})
	go func() {
		fs.Wait()
		close(unmounted)
	}()

	// Wait for termination signal or an unmount from outside
	select {
	case <-ctx.Done():
		logger.Info().Msg("Received signal, unmounting filesystem")
	case <-unmounted:
		logger.Info().Str("mountpoint", mnt).Msg("Filesystem unmounted externally")
		return nil
	}

	if err := fs.Unmount(); err != nil {
		return fmt.Errorf("unmount %q: %w", mnt, err)
	}
	logger.Info().Msg("Filesystem unmounted successfully")
	return nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")

	if len(opts.args) < 2 {
		opts.flags.Usage()
		return fmt.Errorf("expected a command and its argument")
	}
	command, arg := opts.args[0], opts.args[1]

	registry := adapters.NewRegistry()
	adapters.RegisterBuiltins(registry)
	transport, err := registry.NewTransport(cfg.Transport, cfg.Server, cfg.TransportOptions())
	if err != nil {
		return err
	}
	files := filesystem.NewFS(ctx, cfg, transport)
	logger.Debug().Str("command", command).Str("arg", arg).Str("volume", files.ID().String()).Msg("BootFS initializing")

	switch command {
	case "mount":
		return cmdMount(ctx, cfg, files, arg, opts.umount)
	case "get":
		return cmdGet(files, arg, opts.output, stdout, stderr)
	case "stat":
		return cmdStat(files, arg, stdout)
	default:
		opts.flags.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// exitCode logs a failed run and returns the process exit status for err
func exitCode(err error) int {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	logger := util.GetLogger("main")
	logger.Error().Err(err).Msg("bootfs failed")
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if code := exitCode(run(ctx, os.Args[1:], os.Stdout, os.Stderr)); code != 0 {
		stop()
		os.Exit(code)
	}
}
