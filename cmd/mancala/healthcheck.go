package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	healthURLKey     = "url"
	healthTimeoutKey = "timeout"

	defaultHealthURL     = "http://127.0.0.1:8000/"
	defaultHealthTimeout = 3 * time.Second
)

// newHealthcheckCmd is the container probe: it exits non-zero unless the
// server answers 2xx within the timeout.
func newHealthcheckCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MANCALA_HEALTHCHECK")
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:          "healthcheck",
		Short:        "Probe a running mancala server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			client := resty.New().SetTimeout(v.GetDuration(healthTimeoutKey))
			if err := probe(cmd.Context(), client, v.GetString(healthURLKey)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().String(healthURLKey, defaultHealthURL, "URL to probe")
	cmd.Flags().Duration(healthTimeoutKey, defaultHealthTimeout, "give up after this long")
	return cmd
}

func probe(ctx context.Context, client *resty.Client, url string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return fmt.Errorf("probe %s: %w", url, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("probe %s: status %d", url, resp.StatusCode())
	}
	return nil
}
