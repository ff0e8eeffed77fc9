package main

import (
	"context"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves live roots over HTTP: PUT /roots/{id} mounts a document, POST
/roots/{id}/dispatch delivers events, GET /roots/{id}/events streams snapshots
and /metrics exports Prometheus metrics.

Stored snapshots are encrypted when ARBOR_ENCRYPTION_KEY holds a hex encoded
32 byte key.`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		redisAddr, _ := cmd.Flags().GetString("redis")
		redisPassword, _ := cmd.Flags().GetString("redis-password")
		redisDB, _ := cmd.Flags().GetInt("redis-db")
		lockTTL, _ := cmd.Flags().GetDuration("lock-ttl")
		quiet, _ := cmd.Flags().GetBool("quiet")
		prettyMode, _ := cmd.Flags().GetString("pretty")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		mask, _ := cmd.Flags().GetStringSlice("mask")

		key, err := cli.ParseEncryptionKey(os.Getenv("ARBOR_ENCRYPTION_KEY"))
		if err != nil {
			exitWith(err)
		}

		pretty, err := tui.ResolvePretty(prettyMode, os.Stdout)
		if err != nil {
			exitWith(err)
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		err = cli.Serve(ctx, cli.ServeOptions{
			StackOptions: cli.StackOptions{
				RedisAddr:     redisAddr,
				RedisPassword: redisPassword,
				RedisDB:       redisDB,
				LockTTL:       lockTTL,
				DataDir:       dataDir,
				MaskProps:     mask,
				EncryptionKey: key,
				Logger:        createLogger(cmd),
			},
			Addr:   addr,
			Quiet:  quiet,
			Pretty: pretty,
			Out:    os.Stdout,
		})
		if err != nil {
			exitWith(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for snapshots and distributed locks (default in-memory)")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Int("redis-db", 0, "Redis database")
	serveCmd.Flags().Duration("lock-ttl", 0, "Distributed lock TTL (default 30s)")
	serveCmd.Flags().String("data-dir", "", "Directory for snapshot files when redis is not used (default in-memory)")
	serveCmd.Flags().StringSlice("mask", nil, "Regular expressions of prop keys to mask in stored snapshots")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
