package cmd

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/voxcall/voxcall/internal/server"
	"github.com/voxcall/voxcall/internal/server/store"
)

var (
	flagServeAddr string
	flagServeDB   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling server",
	Long: `Run the voxcall signaling server: websocket signaling on /ws/{room},
room directory REST on /rooms, plus /health and /metrics.

The room directory is in-memory unless a Postgres DSN is given via
--db or VOXCALL_DB_CONN.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&flagServeDB, "db", "", "Postgres DSN for the room directory")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	_ = godotenv.Load()

	dsn := flagServeDB
	if dsn == "" {
		dsn = os.Getenv("VOXCALL_DB_CONN")
	}

	var st store.RoomStore
	if dsn != "" {
		pg, err := store.NewPostgresStore(dsn)
		if err != nil {
			return err
		}
		defer pg.Close()
		st = pg
		slog.Info("room directory backed by postgres")
	} else {
		st = store.NewMemoryStore()
	}

	hub := server.NewHub(st)
	go hub.Run()

	slog.Info("signaling server listening", "addr", flagServeAddr)
	return http.ListenAndServe(flagServeAddr, server.NewMux(hub, st))
}
