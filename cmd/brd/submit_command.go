package main

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"brd/internal/config"
	"brd/internal/report"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var channel int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "submit [file|-]",
		Short: "Send one JSON report to a running daemon",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(addr)
			if target == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				target = dialAddress(cfg)
			}

			data, err := readPayload(cmd, args)
			if err != nil {
				return err
			}
			var envelope bytes.Buffer
			if err := report.Encode(&envelope, channel, bytes.TrimSpace(data)); err != nil {
				return err
			}

			conn, err := net.DialTimeout("tcp", target, timeout)
			if err != nil {
				return fmt.Errorf("connect to daemon at %s: %w", target, err)
			}
			defer conn.Close()
			_ = conn.SetWriteDeadline(time.Now().Add(timeout))
			if _, err := conn.Write(envelope.Bytes()); err != nil {
				return fmt.Errorf("send report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %d bytes on channel %d to %s\n", envelope.Len(), channel, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Daemon address (defaults to listener.bind)")
	cmd.Flags().IntVar(&channel, "channel", 0, "Report channel number")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Dial and write timeout")
	return cmd
}

func readPayload(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), report.MaxPayloadBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read report from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read report file: %w", err)
	}
	return data, nil
}

// dialAddress turns the configured bind address into one a client can dial.
func dialAddress(cfg *config.Config) string {
	host, port, err := net.SplitHostPort(cfg.Listener.Bind)
	if err != nil {
		return cfg.Listener.Bind
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
