package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/playmetrics-tools/pmctl/pkg/pmctl/client"
	"github.com/playmetrics-tools/pmctl/pkg/pmctl/export"
)

type exportFlags struct {
	players     bool
	teams       bool
	programs    bool
	tournaments bool
	games       bool
	outDir      string
}

// exportOrder fixes the fetch and export sequence; teams and programs come
// first because the player export resolves names through them.
var exportOrder = []client.ResourceKind{
	client.KindTeams,
	client.KindPrograms,
	client.KindPlayers,
	client.KindTournaments,
	client.KindGames,
}

func NewExportCommand() *cobra.Command {
	flags := exportFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Authenticate and export PlayMetrics data to CSV",
		Long: "Authenticates against PlayMetrics (refreshing the saved session when " +
			"possible, prompting for MFA codes when not) and exports the requested " +
			"data kinds to CSV files. With no kind flags, everything is exported.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), rt, flags)
		},
	}
	cmd.Flags().BoolVarP(&flags.players, "players", "p", false, "Export players")
	cmd.Flags().BoolVarP(&flags.teams, "teams", "t", false, "Export teams")
	cmd.Flags().BoolVarP(&flags.programs, "programs", "r", false, "Export programs")
	cmd.Flags().BoolVarP(&flags.tournaments, "tournaments", "n", false, "Export tournaments")
	cmd.Flags().BoolVarP(&flags.games, "games", "g", false, "Export games")
	cmd.Flags().StringVar(&flags.outDir, "out", "", "Output directory (defaults to the configured output-dir)")
	return cmd
}

func runExport(ctx context.Context, rt *runtimeState, flags exportFlags) error {
	requested := requestedKinds(flags)

	envCfg, apiClient, manager, err := buildComponents(rt)
	if err != nil {
		return err
	}
	// A full sign-in needs credentials; a refreshable session does not.
	if state, ok := rt.store().Load(); !ok || state.RefreshToken == "" {
		if err := envCfg.ValidateCredentials(); err != nil {
			return err
		}
	}

	session, err := manager.EnsureSession(ctx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	apiClient.SetSession(session.IdentityToken, session.AccessKey)

	// The player export resolves team and program names, so those kinds are
	// fetched whenever players are.
	needed := map[client.ResourceKind]bool{}
	for kind := range requested {
		needed[kind] = true
	}
	if requested[client.KindPlayers] {
		needed[client.KindTeams] = true
		needed[client.KindPrograms] = true
	}

	resources := client.Resources()
	payloads := map[client.ResourceKind]any{}
	for _, kind := range exportOrder {
		if !needed[kind] {
			continue
		}
		rt.log.Infow("fetching", "kind", kind)
		result, err := apiClient.FetchFirst(ctx, resources[kind])
		if err != nil {
			// A miss for one kind must not abort the others.
			if errors.Is(err, client.ErrNoEndpoint) {
				rt.log.Warnw("no working endpoint for kind", "kind", kind)
			} else {
				rt.log.Warnw("fetch failed", "kind", kind, "error", err)
			}
			continue
		}
		payloads[kind] = result.Payload
	}

	outDir := flags.outDir
	if outDir == "" {
		outDir = rt.settings.OutputDir
	}
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	exported := 0
	for _, kind := range exportOrder {
		if !requested[kind] {
			continue
		}
		payload, ok := payloads[kind]
		if !ok {
			continue
		}
		filename := filepath.Join(outDir, fmt.Sprintf("playmetrics_%s_%s.csv", kind, timestamp))
		count, err := writeKind(kind, payload, payloads, filename)
		if err != nil {
			rt.log.Warnw("export failed", "kind", kind, "error", err)
			continue
		}
		if count == 0 {
			rt.log.Infow("nothing to export", "kind", kind)
			_ = os.Remove(filename)
			continue
		}
		_, _ = fmt.Fprintf(rt.Writer(), "Exported %d %s -> %s\n", count, kind, filename)
		exported++
	}

	if exported == 0 {
		_, _ = fmt.Fprintln(rt.Writer(), "No data to export.")
		return nil
	}
	_, _ = fmt.Fprintf(rt.Writer(), "Done. Exported %d file(s).\n", exported)
	return nil
}

func writeKind(kind client.ResourceKind, payload any, payloads map[client.ResourceKind]any, filename string) (int, error) {
	file, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = file.Close()
	}()

	if kind == client.KindPlayers {
		teams := export.TeamLookup(payloads[client.KindTeams])
		programs := export.ProgramLookup(payloads[client.KindPrograms])
		rows := export.PlayerRows(payload, teams, programs)
		if len(rows) == 0 {
			return 0, nil
		}
		if err := export.WritePlayersCSV(file, rows); err != nil {
			return 0, err
		}
		return len(rows), nil
	}
	return export.WriteGenericCSV(file, payload, string(kind))
}

func requestedKinds(flags exportFlags) map[client.ResourceKind]bool {
	requested := map[client.ResourceKind]bool{
		client.KindPlayers:     flags.players,
		client.KindTeams:       flags.teams,
		client.KindPrograms:    flags.programs,
		client.KindTournaments: flags.tournaments,
		client.KindGames:       flags.games,
	}
	any := false
	for _, on := range requested {
		any = any || on
	}
	if !any {
		for kind := range requested {
			requested[kind] = true
		}
	}
	return requested
}
