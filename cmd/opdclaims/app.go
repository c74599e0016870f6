package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"opd-claims/client"
	"opd-claims/config"
	"opd-claims/logger"
	"opd-claims/notify"
	"opd-claims/service"
	"opd-claims/upload"
	"opd-claims/view"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errReported marks failures the user has already been told about through a
// toast, so main does not print them a second time.
var errReported = errors.New("reported")

func reported(err error) error {
	return fmt.Errorf("%w: %w", errReported, err)
}

// app holds what every command shares once the root command has run
type app struct {
	out    io.Writer
	errOut io.Writer

	apiURL   string
	logLevel string

	cfg    *config.ClientConfig
	api    client.API
	queue  *notify.Queue
	render *view.Renderer
	log    *zap.SugaredLogger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "opdclaims",
		Short:         "Submit and review OPD medical claims",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.queue != nil {
				a.queue.Close()
			}
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "claims API base URL including /api/v1 (overrides OPD_API_BASE_URL)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(a.membersCmd())
	root.AddCommand(a.memberCmd())
	root.AddCommand(a.submitCmd())
	root.AddCommand(a.claimsCmd())
	root.AddCommand(a.claimCmd())

	return root
}

func (a *app) init() error {
	config.LoadDotEnv()

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIBaseURL = strings.TrimRight(a.apiURL, "/")
	}
	if a.logLevel != "" {
		if err := config.ValidateLogLevel(a.logLevel); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	logger.SetLevel(cfg.LogLevel)
	a.log = logger.GetLogger()

	a.render = view.NewRenderer(a.out)
	toasts := view.NewRenderer(a.errOut)
	a.queue = notify.New(
		notify.WithDuration(cfg.ToastDuration),
		notify.WithListener(func(ev notify.Event) {
			if ev.Kind == notify.EventAdded {
				toasts.Toast(ev.Toast)
			}
		}),
	)
	if a.api == nil {
		a.api = client.New(cfg.APIBaseURL, client.WithLogger(a.log))
	}

	a.log.Debugw("Client configured", "apiBaseURL", cfg.APIBaseURL)
	return nil
}

func (a *app) flowOptions(extra ...service.Option) []service.Option {
	opts := []service.Option{
		service.WithNotifier(a.queue),
		service.WithLogger(a.log),
		service.WithRedirectDelay(a.cfg.RedirectDelay),
	}
	return append(opts, extra...)
}

func (a *app) membersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List the members a claim can be submitted for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flow := service.NewSubmissionFlow(a.api, a.flowOptions()...)
			if err := flow.Enter(cmd.Context()); err != nil {
				return reported(err)
			}
			return a.render.Members(flow.Members())
		},
	}
}

func (a *app) memberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "member <id>",
		Short: "Show one member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.api.GetMember(cmd.Context(), args[0])
			if err != nil {
				a.queue.Error(client.MessageOf(err, "Failed to load member"))
				return reported(err)
			}
			return a.render.Member(m)
		},
	}
}

func (a *app) submitCmd() *cobra.Command {
	var (
		memberID string
		date     string
		picked   []string
		dropped  []string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a claim with its supporting documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			redirected := make(chan string, 1)
			flow := service.NewSubmissionFlow(a.api, a.flowOptions(
				service.WithNavigator(service.NavigatorFunc(func(claimID string) {
					redirected <- claimID
				})),
			)...)

			if err := flow.Enter(ctx); err != nil {
				return reported(err)
			}
			flow.SetMemberID(memberID)
			flow.SetTreatmentDate(date)

			if err := a.bufferFiles(flow.Buffer(), picked, dropped); err != nil {
				return err
			}
			if err := a.render.Files(flow.Buffer().Files()); err != nil {
				return err
			}

			if _, err := flow.Submit(ctx); err != nil {
				return reported(err)
			}

			var claimID string
			select {
			case claimID = <-redirected:
			case <-ctx.Done():
				return ctx.Err()
			}

			fmt.Fprintln(a.out)
			return a.showClaim(ctx, claimID)
		},
	}

	cmd.Flags().StringVar(&memberID, "member", "", "member ID the claim is for")
	cmd.Flags().StringVar(&date, "date", "", "treatment date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&picked, "file", nil, "document to attach, as chosen in a file picker (repeatable)")
	cmd.Flags().StringArrayVar(&dropped, "drop", nil, "document to attach by drag and drop; only PDF, JPEG and PNG are kept (repeatable)")

	return cmd
}

func (a *app) bufferFiles(buf *upload.Buffer, picked, dropped []string) error {
	for _, p := range picked {
		f, err := upload.FromPath(p)
		if err != nil {
			a.queue.Error(fmt.Sprintf("Cannot attach %s", p))
			return reported(err)
		}
		buf.AddPicked(f)
	}

	for _, p := range dropped {
		f, err := upload.FromPath(p)
		if err != nil {
			a.queue.Error(fmt.Sprintf("Cannot attach %s", p))
			return reported(err)
		}
		if buf.AddDropped(f) == 0 {
			a.log.Debugw("Dropped file ignored", "path", p, "contentType", f.ContentType)
		}
	}
	return nil
}

func (a *app) claimsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "claims",
		Short: "Show the claims dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := service.ParseFilter(status)
			if err != nil {
				return err
			}

			flow := service.NewListingFlow(a.api, a.flowOptions()...)
			loadErr := flow.Load(cmd.Context())
			flow.SetFilter(filter)

			if err := a.render.Listing(flow.Stats(), flow.Filter(), flow.Visible(), flow.Empty()); err != nil {
				return err
			}
			if loadErr != nil {
				return reported(loadErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", string(service.FilterAll),
		"status filter: ALL, PROCESSING, APPROVED, REJECTED, PARTIAL or MANUAL_REVIEW")

	return cmd
}

func (a *app) claimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim <id>",
		Short: "Show a claim with its decision and documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showClaim(cmd.Context(), args[0])
		},
	}
}

func (a *app) showClaim(ctx context.Context, claimID string) error {
	flow := service.NewDetailFlow(a.api, a.flowOptions()...)
	v, err := flow.Load(ctx, claimID)
	if err != nil {
		a.render.DetailError(flow.ErrorMessage())
		return reported(err)
	}
	return a.render.Detail(v)
}
