package ui

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RoomRow is one row of the room directory listing.
type RoomRow struct {
	ID          string
	Name        string
	ActiveUsers int
}

// RenderRoomTable prints the room directory as a table.
func RenderRoomTable(rooms []RoomRow) {
	if len(rooms) == 0 {
		fmt.Println(MutedStyle.Render("No active rooms."))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Room", "Name", "Users"})
	for _, r := range rooms {
		t.AppendRow(table.Row{r.ID, r.Name, fmt.Sprintf("%d/2", r.ActiveUsers)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()
}

// RoomBanner renders the box shown when a call room is ready to share.
func RoomBanner(roomID string) string {
	content := fmt.Sprintf("%s Room ready!\n\n%s Room code:  %s\n\nShare the code, then wait for your peer.",
		IconSuccess,
		IconRoom, BoldStyle.Foreground(Primary).Render(roomID),
	)
	return SuccessBoxStyle.Render(content)
}
