package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/posturewatch/internal/store"
	"github.com/andresmejia3/posturewatch/internal/utils"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved calibration profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runProfileList(cmd.Context(), os.Stdout)
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show the thresholds stored in a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runProfileShow(cmd.Context(), os.Stdout, args[0])
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runProfileDelete(cmd.Context(), args[0])
	},
}

func init() {
	profileCmd.AddCommand(profileListCmd, profileShowCmd, profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileList(ctx context.Context, out io.Writer) error {
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	profiles, err := db.ListProfiles(ctx)
	if err != nil {
		utils.ShowError("Failed to list profiles", err, nil)
		return err
	}
	writeProfiles(out, profiles)
	return nil
}

func writeProfiles(out io.Writer, profiles []store.Profile) {
	if len(profiles) == 0 {
		fmt.Fprintln(out, "No profiles found in database. Run 'posturewatch calibrate --profile NAME' to create one.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tCVA MIN\tELBOWS\tEYE DOWN\tSLUMP Z\tSAMPLES\tUPDATED")
	fmt.Fprintln(w, "----\t-------\t------\t--------\t-------\t-------\t-------")
	for _, p := range profiles {
		fmt.Fprintf(w, "%s\t%.1f°\t%.0f-%.0f°\t%.3f\t%.3f\t%d\t%s\n",
			p.Name, p.Config.CVAMinDeg, p.Config.ElbowMinDeg, p.Config.ElbowMaxDeg,
			p.Config.EyeDownDiff, p.Config.SlumpZ, p.Samples, p.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func runProfileShow(ctx context.Context, out io.Writer, name string) error {
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	p, err := db.GetProfile(ctx, name)
	if err != nil {
		return err
	}
	writeProfile(out, p)
	return nil
}

func writeProfile(out io.Writer, p store.Profile) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "name:\t%s\n", p.Name)
	fmt.Fprintf(w, "cva-min:\t%.1f°\n", p.Config.CVAMinDeg)
	fmt.Fprintf(w, "elbow-min:\t%.1f°\n", p.Config.ElbowMinDeg)
	fmt.Fprintf(w, "elbow-max:\t%.1f°\n", p.Config.ElbowMaxDeg)
	fmt.Fprintf(w, "eye-down:\t%.3f\n", p.Config.EyeDownDiff)
	fmt.Fprintf(w, "slump-z:\t%.3f\n", p.Config.SlumpZ)
	fmt.Fprintf(w, "persistence:\t%s\n", p.Config.Persistence)
	fmt.Fprintf(w, "voice-cooldown:\t%s\n", p.Config.VoiceCooldown)
	fmt.Fprintf(w, "mirrored:\t%t\n", p.Config.Mirrored)
	fmt.Fprintf(w, "samples:\t%d\n", p.Samples)
	fmt.Fprintf(w, "created:\t%s\n", p.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "updated:\t%s\n", p.UpdatedAt.Local().Format("2006-01-02 15:04"))
	w.Flush()
}

func runProfileDelete(ctx context.Context, name string) error {
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	if err := db.DeleteProfile(ctx, name); err != nil {
		return err
	}
	fmt.Printf("🗑️  Deleted profile %q\n", name)
	return nil
}
