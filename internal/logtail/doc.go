// Package logtail reads, filters and follows the sheetsync log file for the
// `sheetsync logs` command.
//
// Read returns the last N lines using a ring buffer, so memory is bounded by
// N rather than the file size. Parse understands both logrus formatters the
// logging package can emit (text key=value and JSON) and yields an Entry
// with level, component, message, error and remaining fields. Filter keeps
// entries at or above a level and from selected components. Format renders
// an Entry on one line with lipgloss colours.
//
// Follow streams appended lines with github.com/hpcloud/tail, surviving log
// rotation and a file that does not exist yet.
//
//	lines, _ := logtail.Read(cfg.Log.File, 200)
//	for _, l := range lines {
//		e := logtail.Parse(l)
//		if ok, _ := filter.Match(e); ok {
//			fmt.Println(logtail.Format(e, logtail.DefaultStyles()))
//		}
//	}
package logtail
