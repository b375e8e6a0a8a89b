package cmd

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/voxcall/voxcall/internal/config"
	"github.com/voxcall/voxcall/internal/rooms"
	"github.com/voxcall/voxcall/internal/session"
	"github.com/voxcall/voxcall/internal/ui"
)

var (
	flagDomain   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagInsecure bool
)

var callCmd = &cobra.Command{
	Use:     "call [room-code]",
	Aliases: []string{"c"},
	Short:   "Start or join a voice call",
	Long: `Start a voice call in a room. With no argument a fresh room code is
generated; share it with the other participant. With a room code the
call joins that room.

Examples:
  voxcall call
  voxcall call AB12CD
  voxcall call AB12CD --domain call.example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomArg := ""
		if len(args) == 1 {
			roomArg = args[0]
		}
		return runCall(cmd, roomArg)
	},
}

func init() {
	callCmd.Flags().StringVar(&flagDomain, "domain", "", "signaling server domain")
	callCmd.Flags().StringVar(&flagSTUN, "stun", "", "STUN server URL")
	callCmd.Flags().StringVar(&flagTURN, "turn", "", "TURN server URL")
	callCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	callCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	callCmd.Flags().BoolVar(&flagInsecure, "insecure", false, "use ws/http instead of wss/https")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, roomArg string) error {
	cfg, err := config.Load(config.Options{
		Domain:     flagDomain,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		Insecure:   flagInsecure,
	})
	if err != nil {
		return err
	}

	created := roomArg == ""
	roomID := rooms.NormalizeID(roomArg)
	if created {
		roomID = rooms.GenerateID()
	} else if !rooms.ValidID(roomID) {
		return fmt.Errorf("invalid room code: %q", roomArg)
	}

	if created {
		fmt.Println(ui.RoomBanner(roomID))
	}

	sess := session.New(cfg)
	defer sess.Disconnect()

	stopSpinner := ui.RunConnectionSpinner("Connecting to server...")
	err = sess.Connect(cmd.Context(), roomID)
	stopSpinner()
	if err != nil {
		return err
	}

	return ui.RunCallView(
		func() ui.CallState {
			st := sess.Status()
			return ui.CallState{
				RoomID:          st.RoomID,
				RoomName:        st.RoomName,
				ActiveUsers:     st.ActiveUsers,
				SignalingState:  string(st.SignalingState),
				ConnectionState: st.ConnectionState,
				IsInitiator:     st.IsInitiator,
				PeerDevice:      st.PeerDevice,
				Warning:         st.Warning,
			}
		},
		func() float64 {
			m := sess.Meter()
			if m == nil {
				return 0
			}
			// RMS of speech sits well below full scale; stretch it so
			// the bar moves.
			return math.Min(1, m.Level()*3)
		},
	)
}
