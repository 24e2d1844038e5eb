package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	jsonOut bool
}

type profileFlags struct {
	age    int
	asthma bool
}

func (p *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.age, "age", domain.DefaultAge, "user age in years")
	cmd.Flags().BoolVar(&p.asthma, "asthma", false, "user has asthma or another respiratory condition")
}

func (p *profileFlags) sensitive() bool {
	return domain.DeriveSensitivity(p.age, p.asthma)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "aqictl",
		Short:        "Classify AQI readings and project AQI trends",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(classifyCmd(opts), sensitivityCmd(opts), trendCmd(opts))
	return root
}

func classifyCmd(opts *rootOptions) *cobra.Command {
	var (
		aqi     int
		profile profileFlags
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print the category and recommendation for an AQI value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if aqi < 0 {
				return fmt.Errorf("--aqi must be non-negative, got %d", aqi)
			}
			c := domain.Classify(aqi, profile.sensitive())
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), c)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "AQI:            %d\n", aqi)
			fmt.Fprintf(out, "Category:       %s\n", c.Category)
			fmt.Fprintf(out, "Risk color:     %s\n", c.RiskColor)
			fmt.Fprintf(out, "Sensitivity:    %s\n", c.Sensitivity)
			fmt.Fprintf(out, "Unsafe for you: %t\n", c.UnsafeForUser)
			fmt.Fprintf(out, "Advice:         %s\n", c.Recommendation)
			return nil
		},
	}
	cmd.Flags().IntVar(&aqi, "aqi", -1, "AQI value to classify")
	_ = cmd.MarkFlagRequired("aqi")
	profile.register(cmd)
	return cmd
}

func sensitivityCmd(opts *rootOptions) *cobra.Command {
	var profile profileFlags
	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Print whether a profile belongs to the sensitive group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sensitive := profile.sensitive()
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"sensitive": sensitive,
					"label":     domain.SensitivityLabel(sensitive),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), domain.SensitivityLabel(sensitive))
			return nil
		},
	}
	profile.register(cmd)
	return cmd
}

func trendCmd(opts *rootOptions) *cobra.Command {
	var (
		file    string
		hours   int
		profile profileFlags
	)
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Project AQI from a history file with a linear trend",
		Long: "Reads AQI history as a JSON array of records, or the response body of\n" +
			"GET /v1/users/{id}/aqi/history, and extrapolates a least-squares line.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			history, err := readHistory(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			points, err := domain.ForecastTrend(history, hours)
			if err != nil {
				return err
			}
			points = domain.ClassifyForecast(points, profile.sensitive())
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), points)
			}
			out := cmd.OutOrStdout()
			for _, p := range points {
				fmt.Fprintf(out, "+%2dh  %7.2f  %s\n", p.Hour, p.AQI, p.Classification.Category)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "history JSON file, - for stdin")
	cmd.Flags().IntVar(&hours, "hours", domain.DefaultTrendHours, "hours to project")
	profile.register(cmd)
	return cmd
}

func readHistory(path string, stdin io.Reader) ([]domain.HistoryRecord, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var records []domain.HistoryRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}
	var wrapped struct {
		Records []domain.HistoryRecord `json:"records"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, errors.New("history must be a JSON array of records or an object with a records field")
	}
	return wrapped.Records, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
