package main

import (
	"bufio"
	"fmt"
	"os"

	"moodwave/internal/importer"
	"moodwave/internal/repository/db"
	"moodwave/internal/service/training"

	"github.com/spf13/cobra"
)

func newImportCommand() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "import <csv_file>",
		Short: "Import a legacy survey CSV into a user's history and retrain",
		Long: `Import appends every row with a readable timestamp to the user's history,
then retrains that user once.

Files produced by export carry a user_id column. Only rows whose user_id matches
--user are imported; restore a full export by running import once per user.

Rows are appended, not merged: importing the same file twice duplicates them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			appCfg, err := openApp()
			if err != nil {
				return err
			}
			defer appCfg.Close()

			report, err := importer.Import(cmd.Context(), appCfg.DB, appCfg.Trainer, userID, bufio.NewReader(f))
			if err != nil {
				return err
			}

			out := map[string]interface{}{
				"user_id":             userID,
				"rows":                report.Rows,
				"imported":            report.Imported,
				"dropped":             report.Dropped,
				"skipped_other_users": report.OtherUsers,
			}
			if report.Training != nil {
				out["training"] = outcomeJSON(report.Training)
			}
			return outputJSON(out)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User the rows belong to (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newExportCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every user's history as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := openApp()
			if err != nil {
				return err
			}
			defer appCfg.Close()

			if outPath == "" || outPath == "-" {
				_, err := importer.Export(cmd.Context(), appCfg.DB, os.Stdout)
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			w := bufio.NewWriter(f)
			n, err := importer.Export(cmd.Context(), appCfg.DB, w)
			if err == nil {
				err = w.Flush()
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			return outputJSON(map[string]interface{}{"file": outPath, "rows": n})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "O", "", "Output file (default stdout)")

	return cmd
}

func newHistoryCommand() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a user's observations and recent training runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := openApp()
			if err != nil {
				return err
			}
			defer appCfg.Close()

			history, err := appCfg.DB.History(cmd.Context(), userID)
			if err != nil {
				return err
			}
			runs, err := appCfg.DB.ListTrainingRuns(cmd.Context(), userID, 10)
			if err != nil {
				return err
			}

			observations := make([]map[string]interface{}, 0, len(history))
			for _, obs := range history {
				observations = append(observations, map[string]interface{}{
					"id":              obs.ID,
					"timestamp":       obs.Timestamp,
					"mood":            obs.Mood,
					"sleep_time":      obs.SleepTime,
					"to_sleep_time":   obs.ToSleepTime,
					"training_time":   obs.TrainingTime,
					"weight":          obs.Weight,
					"typing_speed":    obs.TypingSpeed,
					"typing_accuracy": obs.TypingAccuracy,
				})
			}
			trainingRuns := make([]map[string]interface{}, 0, len(runs))
			for _, run := range runs {
				trainingRuns = append(trainingRuns, map[string]interface{}{
					"history_len": run.HistoryLen,
					"decision":    run.Decision,
					"reason":      run.Reason,
					"created_at":  run.CreatedAt,
				})
			}

			return outputJSON(map[string]interface{}{
				"user_id":       userID,
				"count":         len(history),
				"observations":  observations,
				"training_runs": trainingRuns,
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User to show (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newRetrainCommand() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "retrain",
		Short: "Refit a user's model now, regardless of the retrain policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := openApp()
			if err != nil {
				return err
			}
			defer appCfg.Close()

			outcome, err := appCfg.Trainer.Retrain(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return outputJSON(outcomeJSON(outcome))
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User to retrain (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newForecastCommand() *cobra.Command {
	var (
		userID string
		days   int
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast a user's mood for the next days",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := openApp()
			if err != nil {
				return err
			}
			defer appCfg.Close()

			res, err := appCfg.Forecaster.Forecast(cmd.Context(), userID, days)
			if err != nil {
				return err
			}

			values := res.Values
			if values == nil {
				values = []float64{}
			}
			return outputJSON(map[string]interface{}{
				"user_id":       userID,
				"status":        res.Status,
				"days":          days,
				"count":         res.Count,
				"values":        values,
				"final":         res.Final(),
				"model_version": res.ModelVersion,
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User to forecast (required)")
	cmd.Flags().IntVarP(&days, "days", "d", 1, "Forecast horizon in days")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newResetModelCommand() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "reset-model",
		Short: "Delete a user's stored model; history is kept",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := openApp()
			if err != nil {
				return err
			}
			defer appCfg.Close()

			if err := appCfg.DB.DeleteModel(cmd.Context(), userID); err != nil {
				return err
			}
			err = appCfg.DB.RecordTrainingRun(cmd.Context(), db.TrainingRun{
				UserID:   userID,
				Decision: db.DecisionSkipped,
				Reason:   "model reset by operator",
			})
			if err != nil {
				return fmt.Errorf("model deleted but the reset was not logged: %w", err)
			}
			return outputJSON(map[string]interface{}{"user_id": userID, "reset": true})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User whose model is deleted (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func outcomeJSON(o *training.Outcome) map[string]interface{} {
	out := map[string]interface{}{
		"user_id":     o.UserID,
		"history_len": o.HistoryLen,
		"state":       o.State,
		"decision":    o.Decision,
	}
	if o.Model != nil {
		out["model_version"] = o.Model.Version
		out["trained_rows"] = o.Model.TrainedRows
	}
	if o.Warning != nil {
		out["warning"] = o.Warning.Error()
	}
	return out
}
