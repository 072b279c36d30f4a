package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pior/rsp/wire"
)

func printValue(cmd *cobra.Command, v wire.Value) {
	fmt.Fprintln(cmd.OutOrStdout(), wire.Format(v))
}

func newExecCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "exec <command>...",
		Short:   "Execute a single command",
		Example: `  rsp exec "META 'mic-1' 'bit_depth'"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.client.Execute(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printValue(cmd, v)
			return nil
		},
	}
}

func newPipelineCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "pipeline <command> <command>...",
		Short:   "Execute commands as one pipeline, each stage feeding the next",
		Example: `  rsp pipeline "RANGE 'mic-1' 0.000000 1.500000" "ENCODE 'audio/flac'"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.client.Pipeline()
			for _, command := range args {
				p.Raw(command)
			}
			v, err := p.Execute(cmd.Context())
			if err != nil {
				return err
			}
			printValue(cmd, v)
			return nil
		},
	}
}

func newPingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server responds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PONG")
			return nil
		},
	}
}

func newCreateCommand(a *app) *cobra.Command {
	var (
		sampleRate uint32
		channels   uint16
		bitDepth   uint16
	)

	cmd := &cobra.Command{
		Use:   "create <stream>",
		Short: "Create a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.client.Pipeline().Create(args[0], sampleRate, channels, bitDepth).Execute(cmd.Context())
			if err != nil {
				return err
			}
			printValue(cmd, v)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&sampleRate, "sample-rate", 48000, "samples per second")
	cmd.Flags().Uint16Var(&channels, "channels", 1, "number of channels")
	cmd.Flags().Uint16Var(&bitDepth, "bit-depth", 16, "bits per sample (16 or 24)")
	return cmd
}

func newMetaCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "meta <stream> <attribute>",
		Short: "Read a stream attribute",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.client.Pipeline().Meta(args[0], args[1]).Execute(cmd.Context())
			if err != nil {
				return err
			}
			printValue(cmd, v)
			return nil
		},
	}
}

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [pattern]",
		Short: "List streams matching a pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			v, err := a.client.Pipeline().List(pattern).Execute(cmd.Context())
			if err != nil {
				return err
			}
			printValue(cmd, v)
			return nil
		},
	}
}

func newUploadCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "upload <stream> <file>",
		Short: "Upload raw little-endian samples to a stream (file - reads stdin)",
		Example: `  rsp upload mic-1 capture.s16 --format s16le --compress
  arecord -f S16_LE -t raw | rsp upload mic-1 -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			samples, err := readSamples(in, format)
			if err != nil {
				return fmt.Errorf("reading samples: %w", err)
			}

			// Flag values were merged into a.cfg during setup.
			err = a.client.Stream(args[0]).
				ChunkSize(a.cfg.ChunkSize).
				BatchSize(a.cfg.BatchSize).
				Compression(a.cfg.Compression).
				CompressionLevel(a.cfg.CompressionLevel).
				Execute(cmd.Context(), samples)
			if err != nil {
				return err
			}

			a.log.Info().Str("stream", args[0]).Int("samples", len(samples)).Msg("upload complete")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&format, "format", "s16le", "sample encoding of the input (s16le, s24le, s32le)")
	f.IntVar(&a.cfg.ChunkSize, "chunk-size", a.cfg.ChunkSize, "packed bytes per frame")
	f.IntVar(&a.cfg.BatchSize, "batch-size", a.cfg.BatchSize, "frames per request")
	f.BoolVar(&a.cfg.Compression, "compress", a.cfg.Compression, "compress frames with zstd")
	f.IntVar(&a.cfg.CompressionLevel, "compression-level", a.cfg.CompressionLevel, "zstd compression level")
	return cmd
}
