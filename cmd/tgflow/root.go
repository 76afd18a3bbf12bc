package tgflow

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ysy950803/tgflow/internal/tgflow"
)

func init() {
	// windows only
	cobra.MousetrapHelpText = ""

	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "debug")
	rootCmd.PersistentFlags().BoolVar(&LogFile, "log-file", false, "write logs to the work dir instead of stderr")
	rootCmd.PersistentFlags().StringVarP(&ConfigPath, "config", "c", "", "config file path")
	rootCmd.PersistentPreRun = initLog

	rootCmd.Flags().StringVar(&gatewayURL, "gateway", "", "gateway websocket url")
	rootCmd.Flags().StringVar(&httpAddr, "addr", "", "debug http listen address")
	rootCmd.Flags().IntSliceVar(&topics, "topic", nil, "only dispatch messages from these forum topics")
	rootCmd.Flags().IntVar(&maxInFlight, "max-in-flight", 0, "bound concurrent handler tasks, 0 for unbounded")
	rootCmd.Flags().StringVar(&replyText, "reply", "", "reply to every matched incoming message with this text")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Err(err).Msg("command execution failed")
	}
}

var (
	gatewayURL  string
	httpAddr    string
	topics      []int
	maxInFlight int
	replyText   string
)

var rootCmd = &cobra.Command{
	Use:     "tgflow",
	Short:   "tgflow",
	Long:    `tgflow`,
	Example: `tgflow --gateway ws://127.0.0.1:8089/gateway --topic 42`,
	Args:    cobra.MinimumNArgs(0),
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Run: Root,
}

func Root(cmd *cobra.Command, args []string) {
	cmdConf := make(map[string]any)
	if cmd.Flags().Changed("gateway") {
		cmdConf["gateway_url"] = gatewayURL
	}
	if cmd.Flags().Changed("addr") {
		cmdConf["http_addr"] = httpAddr
	}
	if cmd.Flags().Changed("topic") {
		cmdConf["allowed_topics"] = topics
	}
	if cmd.Flags().Changed("max-in-flight") {
		cmdConf["max_in_flight"] = maxInFlight
	}
	if cmd.Flags().Changed("reply") {
		cmdConf["reply_text"] = replyText
	}

	m := tgflow.New()
	if err := m.Run(ConfigPath, cmdConf); err != nil {
		log.Err(err).Msg("failed to run tgflow instance")
	}
}
