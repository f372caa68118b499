package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-pod/internal/api"
	"github.com/joeblew999/plat-pod/internal/pageextent"
	"github.com/joeblew999/plat-pod/internal/server"
	"github.com/joeblew999/plat-pod/internal/service"
	"github.com/joeblew999/plat-pod/internal/units"
	"github.com/joeblew999/plat-pod/internal/validate"
)

// Options defines all CLI flags and env vars for the pod server.
// Flags: --host, --port, --data-dir, --catalog, --strict-units, --field-checks, --log-level
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_CATALOG, ...
type Options struct {
	Host        string `doc:"Host to bind to" default:"0.0.0.0"`
	Port        int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir     string `doc:"Directory for the queue and history database" default:".data"`
	Catalog     string `doc:"Product catalog file" short:"c" default:"configs/podconfig.yaml"`
	StrictUnits bool   `doc:"Reject unknown unit conversions" default:"true"`
	FieldChecks string `doc:"Extent layer field checks: catalog, on or off" enum:"catalog,on,off" default:"catalog"`
	LogLevel    string `doc:"Log level: debug, info, warn or error" default:"info"`
}

func (o *Options) fieldChecks() *bool {
	switch o.FieldChecks {
	case "on":
		v := true
		return &v
	case "off":
		v := false
		return &v
	}
	return nil
}

func newServer(opts *Options, logger *slog.Logger) (*server.Server, error) {
	return server.New(server.Config{
		Host:        opts.Host,
		Port:        fmt.Sprintf("%d", opts.Port),
		DataDir:     opts.DataDir,
		CatalogPath: opts.Catalog,
		StrictUnits: opts.StrictUnits,
		FieldChecks: opts.fieldChecks(),
		Logger:      logger,
	})
}

func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := initLogger(os.Stdout, opts.LogLevel)
		var httpServer *http.Server
		var srv *server.Server

		hooks.OnStart(func() {
			var err error
			srv, err = newServer(opts, logger)
			if err != nil {
				fail("Server error", err)
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-pod API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Catalog: %s\n", opts.Catalog)
			fmt.Println()
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 10 * time.Second}
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fail("Server error", err)
			}
		})

		hooks.OnStop(func() {
			if httpServer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
			srv.Close()
		})
	})

	cli.Root().Use = "pod"
	cli.Root().Short = "Product on Demand page layout and catalog validation"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			spec, err := server.Describe(server.Config{
				Host: opts.Host,
				Port: fmt.Sprintf("%d", opts.Port),
			})
			if err != nil {
				fail("Error describing API", err)
			}

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fail("Error marshaling spec", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// validate subcommand: check a catalog file and print the report
	validateCmd := &cobra.Command{
		Use:   "validate [catalog]",
		Short: "Validate a product catalog file",
		Args:  cobra.MaximumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := initLogger(os.Stderr, opts.LogLevel)
			path := opts.Catalog
			if len(args) == 1 {
				path = args[0]
			}
			wait, _ := cmd.Flags().GetDuration("wait")

			data, err := os.ReadFile(path)
			if err != nil {
				fail("Error reading catalog", err)
			}
			catalogs := service.NewCatalogService(service.CatalogConfig{
				Converter: units.Converter{Legacy: !opts.StrictUnits, Logger: logger},
				Validator: &validate.Validator{
					Lister:      validate.NewHTTPFieldLister(nil, 5, time.Minute),
					FieldChecks: opts.fieldChecks(),
					Logger:      logger,
				},
				Logger: logger,
			})
			rep, err := catalogs.Validate(cmd.Context(), path, data, wait)
			if err != nil {
				fail("Error parsing catalog", err)
			}
			fmt.Println(rep)
			if !rep.Valid {
				os.Exit(1)
			}
		}),
	}
	validateCmd.Flags().Duration("wait", 30*time.Second, "How long to wait for extent layer field checks")
	cli.Root().AddCommand(validateCmd)

	// layout subcommand: compute a page layout from a JSON request
	layoutCmd := &cobra.Command{
		Use:   "layout [request.json]",
		Short: "Compute a page layout from a JSON layout request (stdin by default)",
		Args:  cobra.MaximumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger := initLogger(os.Stderr, opts.LogLevel)
			var r io.Reader = os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					fail("Error reading request", err)
				}
				defer f.Close()
				r = f
			}

			var body api.LayoutBody
			if err := json.NewDecoder(r).Decode(&body); err != nil {
				fail("Error decoding request", err)
			}
			if body.Orientation == "" {
				body.Orientation = "Portrait"
			}
			in, err := body.Input()
			if err != nil {
				fail("Invalid request", err)
			}
			calc := pageextent.Calculator{Conv: units.Converter{Legacy: !opts.StrictUnits, Logger: logger}}
			res, err := calc.Layout(in)
			if err != nil {
				fail("Layout failed", err)
			}
			out, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(out))
		}),
	}
	cli.Root().AddCommand(layoutCmd)

	cli.Run()
}
