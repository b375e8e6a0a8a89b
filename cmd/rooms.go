package cmd

import (
	"github.com/spf13/cobra"

	"github.com/voxcall/voxcall/internal/config"
	"github.com/voxcall/voxcall/internal/rooms"
	"github.com/voxcall/voxcall/internal/ui"
)

var (
	flagRoomsDomain   string
	flagRoomsInsecure bool
)

var roomsCmd = &cobra.Command{
	Use:     "rooms",
	Aliases: []string{"ls"},
	Short:   "List rooms from the room directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{
			Domain:   flagRoomsDomain,
			Insecure: flagRoomsInsecure,
		})
		if err != nil {
			return err
		}

		stopSpinner := ui.RunSpinner("Fetching rooms...")
		list, err := rooms.NewClient(cfg.APIURL).List(cmd.Context())
		stopSpinner()
		if err != nil {
			return err
		}

		tableRows := make([]ui.RoomRow, len(list))
		for i, r := range list {
			tableRows[i] = ui.RoomRow{ID: r.ID, Name: r.Name, ActiveUsers: r.ActiveUsers}
		}
		ui.RenderRoomTable(tableRows)
		return nil
	},
}

func init() {
	roomsCmd.Flags().StringVar(&flagRoomsDomain, "domain", "", "signaling server domain")
	roomsCmd.Flags().BoolVar(&flagRoomsInsecure, "insecure", false, "use http instead of https")
	rootCmd.AddCommand(roomsCmd)
}
