package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/starside/cmd/starside/internal/server"
	"github.com/haivivi/starside/pkg/cli"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the interpreter to remote UIs over WebSocket",
	Long: `Serve the shared interpreter on a WebSocket endpoint. Each connection
gets its own bridge; requests are JSON frames such as

  {"id": "1", "op": "call", "target": "greet", "args": ["world"]}

and script events are pushed to every connection.`,
	Example: `  starside serve -s app.star
  starside serve --addr :9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := apiVersion()
		if err != nil {
			return err
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		srv, err := server.New(s.in, v, logger)
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = globalConfig.ServeAddr()
		}
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		hs := &http.Server{Handler: srv}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			hs.Shutdown(shutdownCtx)
		}()

		logger.Info("serving", "addr", ln.Addr().String(), "api", v.String())
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default serve.addr from config, or "+cli.DefaultServeAddr+")")
	rootCmd.AddCommand(serveCmd)
}
