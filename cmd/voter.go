package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"evote/internal/bootstrap"
	"evote/internal/errs"
	"evote/internal/ports"
)

var voterCmd = &cobra.Command{
	Use:   "voter",
	Short: "Voter registry commands",
}

var voterRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a voter",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		id, _ := cmd.Flags().GetString("id")
		name, _ := cmd.Flags().GetString("name")
		contact, _ := cmd.Flags().GetString("contact")
		unit, _ := cmd.Flags().GetString("unit")
		subunit, _ := cmd.Flags().GetString("subunit")
		tier, _ := cmd.Flags().GetString("tier")

		if err := app.Voting.RegisterVoter(cmd.Context(), ports.NewVoter{
			VoterID:  id,
			FullName: name,
			Contact:  contact,
			Unit:     unit,
			Subunit:  subunit,
			Tier:     tier,
		}); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "voter registered: %s\n", id); err != nil {
			return errs.Wrap(err, "write voter output")
		}
		return nil
	}),
}

var voterEnrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Store a voter's reference biometric token",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		id, _ := cmd.Flags().GetString("id")
		token, _ := cmd.Flags().GetString("token")

		if err := app.Voting.EnrollBiometric(cmd.Context(), id, token); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "biometric reference enrolled: %s\n", id); err != nil {
			return errs.Wrap(err, "write voter output")
		}
		return nil
	}),
}

var orgSubunitCmd = &cobra.Command{
	Use:   "subunit",
	Short: "Create or rename an org sub-unit used by eligibility filters",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		id, _ := cmd.Flags().GetString("id")
		unit, _ := cmd.Flags().GetString("unit")
		name, _ := cmd.Flags().GetString("name")

		if err := app.Voting.UpsertSubunit(cmd.Context(), ports.Subunit{SubunitID: id, Unit: unit, Name: name}); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "subunit saved: %s=%s\n", id, name); err != nil {
			return errs.Wrap(err, "write org output")
		}
		return nil
	}),
}

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Org hierarchy commands",
}

func init() {
	rootCmd.AddCommand(voterCmd)
	voterCmd.AddCommand(voterRegisterCmd)
	voterCmd.AddCommand(voterEnrollCmd)
	rootCmd.AddCommand(orgCmd)
	orgCmd.AddCommand(orgSubunitCmd)

	voterRegisterCmd.Flags().String("id", "", "Voter id (required)")
	voterRegisterCmd.Flags().String("name", "", "Full name (required)")
	voterRegisterCmd.Flags().String("contact", "", "Email or phone used for result notifications")
	voterRegisterCmd.Flags().String("unit", "", "Organizational unit")
	voterRegisterCmd.Flags().String("subunit", "", "Sub-unit name")
	voterRegisterCmd.Flags().String("tier", "", "Tier or level")
	_ = voterRegisterCmd.MarkFlagRequired("id")
	_ = voterRegisterCmd.MarkFlagRequired("name")

	voterEnrollCmd.Flags().String("id", "", "Voter id (required)")
	voterEnrollCmd.Flags().String("token", "", "Reference identity token issued by the biometric service (required)")
	_ = voterEnrollCmd.MarkFlagRequired("id")
	_ = voterEnrollCmd.MarkFlagRequired("token")

	orgSubunitCmd.Flags().String("id", "", "Stable sub-unit id (required)")
	orgSubunitCmd.Flags().String("unit", "", "Parent unit")
	orgSubunitCmd.Flags().String("name", "", "Current sub-unit name (required)")
	_ = orgSubunitCmd.MarkFlagRequired("id")
	_ = orgSubunitCmd.MarkFlagRequired("name")
}
