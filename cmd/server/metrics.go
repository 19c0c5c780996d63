package main

import (
	"fmt"
	"io"

	"idlecraft.ai/internal/sim/game"
)

type saveCounters interface {
	Written() uint64
	Failed() uint64
}

// writeMetrics renders the minimal Prometheus exposition format.
func writeMetrics(w io.Writer, st *game.Stats, saves saveCounters) {
	fmt.Fprintf(w, "# HELP idlecraft_ticks_total Ticks processed by the game loop.\n")
	fmt.Fprintf(w, "# TYPE idlecraft_ticks_total counter\n")
	fmt.Fprintf(w, "idlecraft_ticks_total %d\n", st.Ticks.Load())

	fmt.Fprintf(w, "# HELP idlecraft_commands_total Commands applied, including rejected ones.\n")
	fmt.Fprintf(w, "# TYPE idlecraft_commands_total counter\n")
	fmt.Fprintf(w, "idlecraft_commands_total %d\n", st.Commands.Load())

	fmt.Fprintf(w, "# HELP idlecraft_rejections_total Commands rejected.\n")
	fmt.Fprintf(w, "# TYPE idlecraft_rejections_total counter\n")
	fmt.Fprintf(w, "idlecraft_rejections_total %d\n", st.Rejections.Load())

	fmt.Fprintf(w, "# HELP idlecraft_events_total Notifications published on the bus.\n")
	fmt.Fprintf(w, "# TYPE idlecraft_events_total counter\n")
	fmt.Fprintf(w, "idlecraft_events_total %d\n", st.Events.Load())

	fmt.Fprintf(w, "# HELP idlecraft_dropped_sends_total Messages dropped because a view queue was full.\n")
	fmt.Fprintf(w, "# TYPE idlecraft_dropped_sends_total counter\n")
	fmt.Fprintf(w, "idlecraft_dropped_sends_total %d\n", st.DroppedSends.Load())

	fmt.Fprintf(w, "# HELP idlecraft_views Connected views.\n")
	fmt.Fprintf(w, "# TYPE idlecraft_views gauge\n")
	fmt.Fprintf(w, "idlecraft_views %d\n", st.Observers.Load())

	fmt.Fprintf(w, "# HELP idlecraft_saves_total Saves requested by the game.\n")
	fmt.Fprintf(w, "# TYPE idlecraft_saves_total counter\n")
	fmt.Fprintf(w, "idlecraft_saves_total %d\n", st.Saves.Load())

	if saves == nil {
		return
	}
	fmt.Fprintf(w, "# HELP idlecraft_blob_writes_total Blob writes by outcome.\n")
	fmt.Fprintf(w, "# TYPE idlecraft_blob_writes_total counter\n")
	fmt.Fprintf(w, "idlecraft_blob_writes_total{outcome=%q} %d\n", "ok", saves.Written())
	fmt.Fprintf(w, "idlecraft_blob_writes_total{outcome=%q} %d\n", "failed", saves.Failed())
}
