package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/posturewatch/internal/utils"
	"github.com/spf13/cobra"
)

var (
	resetProfiles bool
	resetAudio    bool
	resetYes      bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset system state (Profiles, Leftover Audio)",
	Long:  "Clears all data. By default, it resets everything. Use flags to clear specific components.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		// If no flags are set, default to clearing EVERYTHING
		if !resetProfiles && !resetAudio {
			resetProfiles = true
			resetAudio = true
		}

		reader := bufio.NewReader(os.Stdin)

		if resetProfiles {
			if resetYes || confirm(reader, os.Stdout, "⚠️  Are you sure you want to DROP all saved profiles?") {
				db, err := openStore(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Println("🗑️  Clearing Profiles...")
				if err := db.Reset(cmd.Context()); err != nil {
					utils.ShowError("Failed to reset database", err, nil)
					return err
				}
			}
		}

		if resetAudio {
			if resetYes || confirm(reader, os.Stdout, "⚠️  Are you sure you want to delete leftover alert audio files?") {
				fmt.Println("🗑️  Clearing Alert Audio...")
				n := removeMatching(filepath.Join(os.TempDir(), "alert_*.mp3"))
				fmt.Printf("   Removed %d files\n", n)
			}
		}

		fmt.Println("✨ System Reset Complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetProfiles, "profiles", false, "Drop saved calibration profiles")
	resetCmd.Flags().BoolVar(&resetAudio, "audio", false, "Delete leftover synthesized alert audio")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

// removeMatching deletes every file matching pattern and returns how many were removed.
func removeMatching(pattern string) int {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Bad pattern %s: %v\n", pattern, err)
		return 0
	}
	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
			continue
		}
		removed++
	}
	return removed
}
