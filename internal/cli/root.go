package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-intel/internal/api"
	"github.com/miradorstack/mirador-intel/internal/config"
	"github.com/miradorstack/mirador-intel/internal/utils"
)

// Version is set at build time via -ldflags "-X .../internal/cli.Version=X.Y.Z".
var Version = "0.0.0-dev"

type rootOptions struct {
	configPath string
	server     string
}

// NewRootCommand builds the intel-engine command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "intel-engine",
		Short:         "Decision-support engine for kitchen cost insights",
		Long:          `intel-engine turns catalog signals into scored insights and at most one suggestion per pass, and learns from how each user reacts to them.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.server, "server", "", "Address of a running intel-engine; empty runs in process")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newEvaluateCommand(opts))
	root.AddCommand(newProfileCommand(opts))
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(opts *rootOptions, logOut io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, utils.NewLoggerTo(logOut, cfg.Logging.Level, cfg.Logging.JSON), nil
}

// caller invokes IntelEngine methods either over gRPC or in process.
type caller interface {
	Call(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error
}

// connect returns a caller and a cleanup func. With --server the calls go
// to the remote engine; otherwise a local App is built from the config.
func connect(ctx context.Context, opts *rootOptions) (caller, func(), error) {
	if opts.server != "" {
		conn, err := grpc.NewClient(opts.server, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", opts.server, err)
		}
		return api.NewClient(conn), func() { _ = conn.Close() }, nil
	}

	cfg, logger, err := loadConfig(opts, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return localCaller{srv: app.Service}, func() { app.Close(context.Background()) }, nil
}

type localCaller struct {
	srv api.IntelEngineServer
}

func (l localCaller) Call(ctx context.Context, method string, req, resp any, _ ...grpc.CallOption) error {
	handlers := map[string]func(context.Context, *structpb.Struct) (*structpb.Struct, error){
		api.MethodEvaluate:        l.srv.Evaluate,
		api.MethodCreateAction:    l.srv.CreateAction,
		api.MethodExecuteAction:   l.srv.ExecuteAction,
		api.MethodTrackEvents:     l.srv.TrackEvents,
		api.MethodGetProfile:      l.srv.GetProfile,
		api.MethodUpdateProfile:   l.srv.UpdateProfile,
		api.MethodResetProfile:    l.srv.ResetProfile,
		api.MethodGetTransparency: l.srv.GetTransparency,
	}
	handler, ok := handlers[method]
	if !ok {
		return fmt.Errorf("unknown method %q", method)
	}
	in, err := api.Encode(req)
	if err != nil {
		return err
	}
	out, err := handler(ctx, in)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return api.Decode(out, resp)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
