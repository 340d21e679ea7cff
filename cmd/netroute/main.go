package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jackpal/gateway"
	"github.com/spf13/cobra"

	"github.com/jursonmo/netroute"
	"github.com/jursonmo/netroute/internal/config"
	"github.com/jursonmo/netroute/internal/logger"
)

var version = "0.1.0"

type globalFlags struct {
	configFile string
	logLevel   string
	logFormat  string
	netns      string
}

type applyFlags struct {
	destination    string
	gateway        string
	interfaceAlias string
	metric         int
	state          string
	check          bool
	report         string
}

// failure is printed instead of a result when a route could not be reconciled.
type failure struct {
	Failed      bool   `json:"failed"`
	Msg         string `json:"msg"`
	Kind        string `json:"kind,omitempty"`
	Destination string `json:"destination,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "netroute",
		Short:         "Declarative static route management",
		Long:          `Bring a static route to a desired state (present or absent), changing the routing table only when needed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "Configuration file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: json or text")
	rootCmd.PersistentFlags().StringVar(&g.netns, "netns", "", "Named network namespace to operate in (linux)")

	rootCmd.AddCommand(newApplyCmd(g, out))
	rootCmd.AddCommand(newListCmd(g, out))
	rootCmd.AddCommand(newGatewayCmd(out))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(out, "netroute %s %s/%s %s\n", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
		},
	})
	return rootCmd
}

// load merges the config file with flags given on the command line.
func (g *globalFlags) load(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(g.configFile)
	if err != nil {
		return nil, nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = g.logFormat
	}
	if flags.Changed("netns") {
		cfg.System.Namespace = g.netns
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if g.configFile != "" {
		log.ConfigLoaded(g.configFile, len(cfg.Routes))
	}
	return cfg, log, nil
}

func newApplyCmd(g *globalFlags, out io.Writer) *cobra.Command {
	f := &applyFlags{}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile one route, or every route in the config file",
		Example: `  netroute apply --destination 10.10.0.0/16 --gateway 192.168.1.1 --metric 10
  netroute apply --destination 10.10.0.0/16 --gateway 192.168.1.1 --state absent
  netroute apply --config /etc/netroute.yaml --check`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, g, f, out)
		},
	}
	cmd.Flags().StringVarP(&f.destination, "destination", "d", "", "Destination prefix in CIDR notation")
	cmd.Flags().StringVarP(&f.gateway, "gateway", "g", "", "Next hop address (resolved from the interface when empty)")
	cmd.Flags().StringVarP(&f.interfaceAlias, "interface-alias", "i", "", "Outgoing interface (resolved from the gateway when empty)")
	cmd.Flags().IntVarP(&f.metric, "metric", "m", netroute.DefaultMetric, "Route metric")
	cmd.Flags().StringVarP(&f.state, "state", "s", string(netroute.StatePresent), "Desired state: present or absent")
	cmd.Flags().BoolVar(&f.check, "check", false, "Report what would change without changing it")
	cmd.Flags().StringVar(&f.report, "report", "", "Write the results to this JSON file")
	return cmd
}

func runApply(cmd *cobra.Command, g *globalFlags, f *applyFlags, out io.Writer) error {
	cfg, log, err := g.load(cmd)
	if err != nil {
		printFailure(out, "", err)
		return err
	}

	specs := cfg.Routes
	if cmd.Flags().Changed("destination") || len(specs) == 0 {
		specs = []netroute.RouteSpec{{
			Destination:    f.destination,
			Gateway:        f.gateway,
			InterfaceAlias: f.interfaceAlias,
			Metric:         f.metric,
			State:          netroute.State(f.state),
		}}
		if _, err := specs[0].Normalize(); err != nil {
			printFailure(out, f.destination, err)
			return err
		}
	}

	cfg.System.LinkCacheTTL = cfg.LinkCacheTTL()
	ctrl, err := netroute.NewSystemController(cfg.System)
	if err != nil {
		printFailure(out, "", err)
		return err
	}
	ctrl.CheckMode = cfg.CheckMode || f.check
	ctrl.Logger = log.WithComponent("controller").Logger

	start := time.Now()
	var (
		results []netroute.Result
		changed int
		errs    []error
	)
	for _, spec := range specs {
		res, err := ctrl.Reconcile(cmd.Context(), spec)
		if err != nil {
			printFailure(out, spec.Destination, err)
			errs = append(errs, err)
			continue
		}
		log.RouteResult(res)
		printJSON(out, res)
		results = append(results, res)
		if res.Changed {
			changed++
		}
	}
	log.BatchCompleted(len(specs), changed, len(errs), time.Since(start).Milliseconds())

	reportPath := cfg.Report
	if f.report != "" {
		reportPath = f.report
	}
	if reportPath != "" {
		if err := (netroute.FileReport{Path: reportPath}).Save(results); err != nil {
			log.Error("Failed to write report", "path", reportPath, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newListCmd(g *globalFlags, out io.Writer) *cobra.Command {
	var destination string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the routes for a destination (default routes when omitted)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.load(cmd)
			if err != nil {
				printFailure(out, destination, err)
				return err
			}
			m, err := netroute.NewIPRouteManager(cfg.System)
			if err != nil {
				printFailure(out, destination, err)
				return err
			}

			var dsts []netip.Prefix
			if destination == "" {
				dsts = []netip.Prefix{netip.MustParsePrefix("0.0.0.0/0"), netip.MustParsePrefix("::/0")}
			} else {
				p, err := netip.ParsePrefix(destination)
				if err != nil {
					err = fmt.Errorf("invalid destination %q: %w", destination, err)
					printFailure(out, destination, err)
					return err
				}
				dsts = []netip.Prefix{p.Masked()}
			}

			records := []netroute.RouteRecord{}
			for _, dst := range dsts {
				rr, err := m.List(cmd.Context(), dst)
				if err != nil {
					printFailure(out, dst.String(), err)
					return err
				}
				records = append(records, rr...)
			}
			printJSON(out, records)
			return nil
		},
	}
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "Destination prefix in CIDR notation")
	return cmd
}

func newGatewayCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Print the host default gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw, err := gateway.DiscoverGateway()
			if err != nil {
				err = fmt.Errorf("discover gateway: %w", err)
				printFailure(out, "", err)
				return err
			}
			ifIP, err := gateway.DiscoverInterface()
			if err != nil {
				err = fmt.Errorf("discover interface: %w", err)
				printFailure(out, "", err)
				return err
			}
			printJSON(out, map[string]string{
				"gateway":      gw.String(),
				"interface_ip": ifIP.String(),
			})
			return nil
		},
	}
}

func printJSON(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printFailure(out io.Writer, destination string, err error) {
	f := failure{Failed: true, Msg: err.Error(), Destination: destination}
	var re *netroute.RouteError
	if errors.As(err, &re) {
		f.Kind = re.Kind.String()
	}
	printJSON(out, f)
}
