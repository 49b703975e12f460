package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joebot/botchat/internal/chat"
	"github.com/joebot/botchat/internal/cli"
	"github.com/joebot/botchat/internal/config"
	"github.com/joebot/botchat/internal/devserver"
	"github.com/joebot/botchat/internal/history"
	"github.com/joebot/botchat/internal/logging"
	"github.com/joebot/botchat/internal/picker"
)

var (
	flagConfig string
	flagServer string
)

var rootCmd = &cobra.Command{
	Use:           "botchat",
	Short:         "Chat with bots from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", config.ConfigPath(), "config file path")
	flags.StringVar(&flagServer, "server", "", "chat server base URL (overrides config and "+config.EnvServer+")")

	rootCmd.AddCommand(
		newChatCmd(),
		newSendCmd(),
		newCreateCmd(),
		newBotsCmd(),
		newServeCmd(),
		newStatusCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrStyle.Render("  Error: "+err.Error()))
		os.Exit(1)
	}
}

// loadConfig applies .env, the config file, environment overrides and the
// --server flag, in that order.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", err)
	}
	cfg, err := config.LoadFrom(flagConfig)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg)
	if flagServer != "" {
		cfg.Server.URL = flagServer
	}
	return cfg, nil
}

func fileLogs(cfg *config.Config) func() {
	closer := logging.ToFile(logging.FileOptions{
		Path:       cfg.LogPath(),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Level:      cfg.SlogLevel(),
	})
	return func() { closer.Close() }
}

func newPicker(cfg *config.Config) (*picker.Client, error) {
	return picker.NewClient(cfg.Server.URL, &http.Client{Timeout: cfg.RequestTimeout()})
}

func sessionOptions(cfg *config.Config) (chat.Options, error) {
	endpoint, err := chat.Endpoint(cfg.Server.URL, cfg.Server.WSPath)
	if err != nil {
		return chat.Options{}, err
	}
	return chat.Options{
		Endpoint:    endpoint,
		Dialer:      &chat.WebSocketDialer{HandshakeTimeout: cfg.RequestTimeout()},
		LockTimeout: cfg.LockTimeout(),
	}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// --- chat command ---

func newChatCmd() *cobra.Command {
	var bot int
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer fileLogs(cfg)()

			opts, err := sessionOptions(cfg)
			if err != nil {
				return err
			}
			if dir := cfg.HistoryPath(); dir != "" {
				store, err := history.Open(dir)
				if err != nil {
					slog.Warn("open history failed; transcripts stay in memory", "dir", dir, "err", err)
				} else {
					defer store.Close()
					opts.Store = store
				}
			}

			client, err := newPicker(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			// The configured roster is enough to chat when the server list is down.
			roster, _ := cli.LoadRoster(ctx, client, cfg)

			initial := chat.BotID(cfg.Chat.DefaultBot)
			if cmd.Flags().Changed("bot") {
				initial = chat.BotID(bot)
			}
			return cli.RunChat(ctx, cli.ChatConfig{
				Server:       cfg.Server.URL,
				Roster:       roster,
				InitialBot:   initial,
				ScrollPolicy: cfg.Chat.ScrollPolicy,
				Session:      opts,
			})
		},
	}
	cmd.Flags().IntVar(&bot, "bot", 0, "bot to chat with first")
	return cmd
}

// --- send command ---

func newSendCmd() *cobra.Command {
	var bot int
	cmd := &cobra.Command{
		Use:   "send --bot ID MESSAGE",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if bot < 0 {
				return fmt.Errorf("invalid bot id %d", bot)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer fileLogs(cfg)()

			opts, err := sessionOptions(cfg)
			if err != nil {
				return err
			}
			client, err := newPicker(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			target := picker.Bot{ID: chat.BotID(bot)}
			roster, _ := cli.LoadRoster(ctx, client, cfg)
			for _, b := range roster {
				if b.ID == target.ID {
					target = b
					break
				}
			}
			return cli.RunSingleMessage(ctx, opts, target, strings.Join(args, " "))
		},
	}
	cmd.Flags().IntVar(&bot, "bot", 0, "bot id")
	cmd.MarkFlagRequired("bot")
	return cmd
}

// --- create command ---

func newCreateCmd() *cobra.Command {
	var sex string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var preset *picker.Sex
			if sex != "" {
				s, err := picker.ParseSex(sex)
				if err != nil {
					return err
				}
				preset = &s
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer fileLogs(cfg)()

			client, err := newPicker(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return cli.RunCreate(ctx, client, preset)
		},
	}
	cmd.Flags().StringVar(&sex, "sex", "", "male or female; skips the first step")
	return cmd
}

// --- bots command ---

func newBotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bots",
		Short: "List bots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer fileLogs(cfg)()

			client, err := newPicker(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return cli.RunBots(ctx, client, cfg)
		},
	}
}

// --- serve command ---

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local development chat server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.ToStderr(cfg.SlogLevel())
			if addr == "" {
				addr = cfg.DevServer.Addr
			}

			fmt.Println()
			fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("  %s botchat dev server", cli.Logo)) + cli.DimStyle.Render(" "+addr))
			fmt.Println()

			ctx, cancel := signalContext()
			defer cancel()
			s := devserver.New(devserver.Options{ReplyDelay: cfg.ReplyDelay()})
			return s.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// --- status, init, version ---

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %s\n", err)
				cfg = config.DefaultConfig()
			}
			cli.RunStatus(cfg, flagConfig)
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunInit(flagConfig)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("  %s botchat v%s", cli.Logo, cli.Version)))
		},
	}
}
