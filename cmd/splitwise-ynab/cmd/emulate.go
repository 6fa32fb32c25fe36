package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/internal/emulator"
)

var (
	emulateAddr           string
	emulateDBPath         string
	emulateSeed           bool
	emulateSplitwiseToken string
	emulateYNABToken      string
)

// emulateCmd represents the emulate command.
var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Serve an in-memory Splitwise and YNAB emulator",
	Long: `Serve an in-memory emulator of the Splitwise and YNAB endpoints this
tool uses. State lives in a bbolt database: pass --db to keep it between
runs, otherwise a temporary file is used and removed on shutdown.

Point the other commands at it with:
  SPLITWISE_API_URL=http://localhost:8080/api/v3.0
  YNAB_API_URL=http://localhost:8080/v1

Example:
  splitwise-ynab emulate --addr :8080 --seed`,
	Run: runEmulate,
}

func init() {
	emulateCmd.Flags().StringVar(&emulateAddr, "addr", ":8080", "Listen address")
	emulateCmd.Flags().StringVar(&emulateDBPath, "db", "", "Database file (default: a temporary file)")
	emulateCmd.Flags().BoolVar(&emulateSeed, "seed", false, "Load the demo data set")
	emulateCmd.Flags().StringVar(&emulateSplitwiseToken, "splitwise-token", "splitwise-emulator", "Bearer token accepted by the Splitwise endpoints")
	emulateCmd.Flags().StringVar(&emulateYNABToken, "ynab-token", "ynab-emulator", "Bearer token accepted by the YNAB endpoints")
}

func runEmulate(cmd *cobra.Command, args []string) {
	dbPath := emulateDBPath
	if dbPath == "" {
		dir, err := os.MkdirTemp("", "splitwise-ynab-emulator")
		exitOnError(err, "failed to create temporary directory")
		defer os.RemoveAll(dir)
		dbPath = filepath.Join(dir, "emulator.db")
	}

	var (
		st  *emulator.Store
		err error
	)
	if emulateSeed {
		st, err = emulator.OpenDemo(dbPath, time.Now())
	} else {
		st, err = emulator.Open(dbPath, emulator.DemoUser, emulator.DemoBudgetID)
	}
	exitOnError(err, "failed to open emulator database")
	defer st.Close()

	router := emulator.NewRouter(st, emulator.RouterConfig{
		SplitwiseToken: emulateSplitwiseToken,
		YNABToken:      emulateYNABToken,
		Middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Logger,
			middleware.Timeout(60 * time.Second),
		},
	})

	server := &http.Server{
		Addr:         emulateAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		<-cmd.Context().Done()

		slog.Info("shutting down emulator")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting emulator", "addr", emulateAddr, "db", dbPath, "budget_id", st.BudgetID(), "seeded", emulateSeed)
	fmt.Fprintf(cmd.OutOrStdout(), "SPLITWISE_API_KEY=%s\nYNAB_ACCESS_TOKEN=%s\nYNAB_BUDGET_ID=%s\n",
		emulateSplitwiseToken, emulateYNABToken, st.BudgetID())
	if emulateSeed {
		fmt.Fprintf(cmd.OutOrStdout(), "YNAB_ACCOUNT_ID=%s\nSPLITWISE_DEFAULT_PERSON_NAME=%s\n",
			emulator.DemoAccountID, emulator.DemoFriendName)
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitOnError(err, "server error")
	}

	slog.Info("emulator stopped")
}
