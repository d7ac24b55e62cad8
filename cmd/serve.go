package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/airshed-group/exposure-cli/internal/engine"
	"github.com/airshed-group/exposure-cli/internal/geom2d"
	"github.com/airshed-group/exposure-cli/internal/tileset"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the exposure analysis HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		mux := buildMux(env)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildMux wires the HTTP routes over an initialized analysis environment.
func buildMux(env *analysisEnv) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"ready":  env.Index.Ready(),
		})
	})

	mux.HandleFunc("GET /windows", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(env.Windows.Windows())
	})

	mux.HandleFunc("POST /analyze", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Polygon [][]float64 `json:"polygon"`
			Date    string      `json:"date"`
			Hour    int         `json:"hour"`
			Dark    bool        `json:"dark"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		coords := make([]geom.Coord, 0, len(req.Polygon))
		for _, p := range req.Polygon {
			if len(p) < 2 {
				http.Error(w, `{"error":"polygon vertices must be [lng, lat] pairs"}`, http.StatusBadRequest)
				return
			}
			coords = append(coords, geom.Coord{p[0], p[1]})
		}
		poly := geom2d.NewPolygon(coords...)

		instant := tileset.Instant{Date: req.Date, Hour: req.Hour}
		if err := instant.Validate(); err != nil {
			http.Error(w, `{"error":"invalid date or hour"}`, http.StatusBadRequest)
			return
		}

		var last engine.Update
		for u := range env.Controller.Analyze(r.Context(), engine.Request{
			Polygon: poly,
			Instant: instant,
			Dark:    req.Dark,
		}) {
			last = u
		}

		w.Header().Set("Content-Type", "application/json")
		if last.Status == engine.StatusError {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		_ = json.NewEncoder(w).Encode(last)
	})

	return mux
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
