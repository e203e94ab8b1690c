package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pausewise/pausewise/internal/proxy"
)

func proxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run the reflection proxy service",
		Long: `Runs the hosted proxy that turns anonymized purchase context into
reflective questions via an LLM. API keys stay on this service; extensions
authenticate with nothing but an anonymous client id and are rate limited
per client.`,
		RunE: runProxy,
	}

	cmd.Flags().String("addr", ":8090", "listen address")
	cmd.Flags().String("llm-provider", "openai", "LLM provider (openai, anthropic)")
	cmd.Flags().String("llm-model", "", "model override (provider default when empty)")
	cmd.Flags().Int("requests-per-hour", 30, "per-client request budget")
	cmd.Flags().Float64("global-qps", 50, "global request rate cap")

	_ = viper.BindPFlag("proxy.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("llm.provider", cmd.Flags().Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", cmd.Flags().Lookup("llm-model"))
	_ = viper.BindPFlag("ratelimit.requests_per_hour", cmd.Flags().Lookup("requests-per-hour"))
	_ = viper.BindPFlag("ratelimit.global_qps", cmd.Flags().Lookup("global-qps"))

	return cmd
}

func runProxy(cmd *cobra.Command, _ []string) error {
	cfg := proxy.Config{
		Addr: viper.GetString("proxy.addr"),
		LLM: proxy.ProviderConfig{
			Provider:    viper.GetString("llm.provider"),
			APIKey:      viper.GetString("llm.api_key"),
			Model:       viper.GetString("llm.model"),
			Temperature: viper.GetFloat64("llm.temperature"),
			MaxTokens:   viper.GetInt("llm.max_tokens"),
		},
		RequestsPerHour: viper.GetInt("ratelimit.requests_per_hour"),
		GlobalQPS:       viper.GetFloat64("ratelimit.global_qps"),
		RequestTimeout:  viper.GetDuration("llm.timeout"),
	}

	srv, err := proxy.NewServer(cfg, slog.Default())
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}
