package cli

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fieldops/internal/store"
)

func newResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe all tasks, logs, and users and zero the version counter",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if !force {
				fmt.Printf("This deletes everything in %s. Type 'yes' to continue: ", cfg.DBPath)
				line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				if strings.TrimSpace(line) != "yes" {
					fmt.Println("aborted")
					return nil
				}
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					log.Printf("WARNING: store close: %v", err)
				}
			}()

			if err := st.Wipe(); err != nil {
				return err
			}
			fmt.Println("database wiped; version counter reset to 0")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")
	return cmd
}
