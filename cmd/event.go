package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"evote/internal/bootstrap"
	domain "evote/internal/domain/voting"
	"evote/internal/errs"
	"evote/internal/usecase/voting"
)

// eventFile is the YAML layout accepted by `event create --file`.
type eventFile struct {
	ID       string    `yaml:"id"`
	Title    string    `yaml:"title"`
	OpensAt  time.Time `yaml:"opens_at"`
	ClosesAt time.Time `yaml:"closes_at"`
	Fence    struct {
		Lat            float64 `yaml:"lat"`
		Lng            float64 `yaml:"lng"`
		RadiusMeters   float64 `yaml:"radius_meters"`
		OffSiteAllowed bool    `yaml:"off_site_allowed"`
	} `yaml:"fence"`
	Eligibility struct {
		Unit       string   `yaml:"unit"`
		SubunitIDs []string `yaml:"subunit_ids"`
		Tiers      []string `yaml:"tiers"`
	} `yaml:"eligibility"`
	Contestants []struct {
		ID       string `yaml:"id"`
		Position string `yaml:"position"`
		Name     string `yaml:"name"`
	} `yaml:"contestants"`
}

func parseEventFile(data []byte) (voting.CreateEventInput, error) {
	var file eventFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return voting.CreateEventInput{}, errs.Wrap(err, "decode event yaml")
	}

	input := voting.CreateEventInput{
		EventID:  file.ID,
		Title:    file.Title,
		OpensAt:  file.OpensAt,
		ClosesAt: file.ClosesAt,
		Fence: domain.Fence{
			Lat:            file.Fence.Lat,
			Lng:            file.Fence.Lng,
			RadiusMeters:   file.Fence.RadiusMeters,
			OffSiteAllowed: file.Fence.OffSiteAllowed,
		},
		Eligibility: domain.EligibilityFilter{
			Unit:       file.Eligibility.Unit,
			SubunitIDs: file.Eligibility.SubunitIDs,
			Tiers:      file.Eligibility.Tiers,
		},
	}
	for _, c := range file.Contestants {
		input.Contestants = append(input.Contestants, voting.ContestantInput{
			ContestantID: c.ID,
			Position:     c.Position,
			Name:         c.Name,
		})
	}
	return input, nil
}

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Voting event commands",
}

var eventCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a voting event from a YAML file",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		path, _ := cmd.Flags().GetString("file")
		data, err := os.ReadFile(path)
		if err != nil {
			return errs.Wrapf(err, "read event file %s", path)
		}
		input, err := parseEventFile(data)
		if err != nil {
			return err
		}

		view, err := app.Voting.CreateEvent(cmd.Context(), input)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "event created: %s status=%s positions=%v\n", view.EventID, view.Status, view.Positions); err != nil {
			return errs.Wrap(err, "write event output")
		}
		return nil
	}),
}

var eventShowCmd = &cobra.Command{
	Use:   "show <event-id>",
	Short: "Show an event with its current status",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		view, err := app.Voting.GetEvent(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			return err
		}
		return writeJSONOutput(cmd, view)
	}),
}

var eventResultsCmd = &cobra.Command{
	Use:   "results <event-id>",
	Short: "Show published results for a closed event",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		view, err := app.Voting.GetResults(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			return err
		}
		return writeJSONOutput(cmd, view)
	}),
}

func writeJSONOutput(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return errs.Wrap(err, "write json output")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(eventCmd)
	eventCmd.AddCommand(eventCreateCmd)
	eventCmd.AddCommand(eventShowCmd)
	eventCmd.AddCommand(eventResultsCmd)

	eventCreateCmd.Flags().String("file", "", "Path to the event YAML file (required)")
	_ = eventCreateCmd.MarkFlagRequired("file")
}
