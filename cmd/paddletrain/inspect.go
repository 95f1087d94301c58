package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"paddlerl/internal/config"
	"paddlerl/internal/stats"
	"paddlerl/internal/storage"
)

// openStore resolves the store settings the same way training does.
func openStore(ctx context.Context, cmd *cobra.Command, f *rootFlags) (storage.Store, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if fl := cmd.Flags().Lookup("store"); fl != nil && fl.Changed {
		cfg.Store.Kind = f.store
	}
	if fl := cmd.Flags().Lookup("store-path"); fl != nil && fl.Changed {
		cfg.Store.Path = f.storePath
	}
	store, err := storage.NewStore(cfg.Store.Kind, cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, fmt.Errorf("init store: %w", err)
	}
	return store, nil
}

func newCheckpointsCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoints [agent...]",
		Short: "List saved checkpoint epochs per agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, cmd, f)
			if err != nil {
				return err
			}
			defer func() { _ = storage.CloseIfSupported(store) }()

			agents := args
			if len(agents) == 0 {
				agents = []string{smashAgentName, dontWaitAgentName}
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "AGENT\tEPOCH\tSAVED\tRUN")
			for _, agent := range agents {
				epochs, err := store.ListCheckpointEpochs(ctx, agent)
				if err != nil {
					return err
				}
				for _, epoch := range epochs {
					cp, ok, err := store.GetCheckpoint(ctx, agent, epoch)
					if err != nil {
						return err
					}
					if !ok {
						continue
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", agent, epoch, humanize.Time(cp.SavedAt), cp.RunID)
				}
			}
			return w.Flush()
		},
	}
}

func newHistoryCmd(f *rootFlags) *cobra.Command {
	var (
		series string
		window int
	)
	cmd := &cobra.Command{
		Use:   "history <run-id>",
		Short: "Show the training phases recorded for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, cmd, f)
			if err != nil {
				return err
			}
			defer func() { _ = storage.CloseIfSupported(store) }()

			history, ok, err := store.GetTrainingHistory(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no training history for run %s", args[0])
			}
			out := cmd.OutOrStdout()
			if series != "" {
				return stats.WriteSeries(out, series, stats.RewardCurve(history, series, window))
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "AGENT\tEPOCH\tUPDATES\tCRITIC\tACTOR\tREWARD\tSYNC\tCHECKPOINT")
			for _, rec := range history {
				fmt.Fprintf(w, "%s\t%d\t%s\t%.4f\t%.4f\t%.3f\t%t\t%t\n",
					rec.Agent, rec.ModelEpoch, humanize.Comma(int64(rec.Updates)),
					rec.CriticLoss, rec.ActorLoss, rec.MeanReward, rec.HardSynced, rec.Checkpoint)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "AGENT\tPHASES\tUPDATES\tMEAN\tSTD\tBEST\tWORST")
			for _, s := range stats.Summarize(history) {
				fmt.Fprintf(w, "%s\t%d\t%s\t%.3f\t%.3f\t%.3f\t%.3f\n",
					s.Agent, s.Phases, humanize.Comma(int64(s.Updates)),
					s.MeanReward, s.RewardStd, s.BestReward, s.WorstReward)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&series, "series", "", "print the smoothed reward series of one agent instead of the tables")
	cmd.Flags().IntVar(&window, "window", 5, "trailing window for --series smoothing")
	return cmd
}
